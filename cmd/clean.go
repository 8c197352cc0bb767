package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/watchbox/config"
	"github.com/anoixa/watchbox/internal/app"
	"github.com/spf13/cobra"
)

// cleanCmd 清除指向不存在对象的 image_key
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clear image keys whose objects no longer exist",
	Long: `Scan every watch that references an image and clear the reference
when the object is missing from storage. Storage is never modified.`,
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if err := runClean(timeout); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Duration("timeout", 10*time.Minute, "Maximum duration of the scan")
}

// runClean 执行一次扫描
func runClean(timeout time.Duration) error {
	config.InitConfig()
	cfg := config.Get()

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer func() { _ = container.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := container.Scanner.RunOnce(ctx)
	if report != nil {
		fmt.Println()
		fmt.Println("========================================")
		fmt.Println("       Clean Statistics")
		fmt.Println("========================================")
		fmt.Printf("Watches scanned:   %d\n", report.Scanned)
		fmt.Printf("Keys cleared:      %d\n", report.Cleared)
		fmt.Printf("Checks failed:     %d\n", report.Failed)
		fmt.Println("========================================")
	}
	return err
}
