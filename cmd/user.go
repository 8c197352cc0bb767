package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/watchbox/config"
	"github.com/anoixa/watchbox/database"
	"github.com/anoixa/watchbox/database/repo/accounts"
	"github.com/anoixa/watchbox/internal/services/auth"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		if err := runUserCreate(username, password); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().String("username", "", "Username")
	userCreateCmd.Flags().String("password", "", "Password (at least 8 characters)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(username, password string) error {
	config.InitConfig()
	cfg := config.Get()

	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	user, err := auth.CreateUser(context.Background(), accounts.NewRepository(db), username, password)
	if err != nil {
		return err
	}

	fmt.Printf("User %s created (id: %s)\n", user.Username, user.ID)
	return nil
}
