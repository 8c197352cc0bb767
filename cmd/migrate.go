package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/watchbox/config"
	"github.com/anoixa/watchbox/database"
	"github.com/anoixa/watchbox/database/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// migrateCmd 数据库迁移命令，不带子命令时对当前数据库执行 DDL
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Create or update the schema of the configured database, or copy data between databases with "migrate run".`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSchemaMigration(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Copy data from one database to another",
	Long: `Copy users, brands and watches from a source database to a target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  watchbox migrate run --from-sqlite ./data/watchbox.db --to-postgres "host=localhost user=postgres password=secret dbname=watchbox port=5432"

  # Replace rows that already exist in the target
  watchbox migrate run --from-sqlite ./data/watchbox.db --to-postgres "..." --on-conflict=overwrite`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		opts := migrateOptions{
			fromType:    fromType,
			toType:      toType,
			fromDSN:     fromDSN,
			toDSN:       toDSN,
			skipConfirm: skipConfirm,
			batchSize:   batchSize,
			onConflict:  onConflict,
		}
		if fromSQLite != "" {
			opts.fromType, opts.fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			opts.toType, opts.toDSN = "postgres", toPostgres
		}

		if _, err := runMigration(context.Background(), opts); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

func runSchemaMigration() error {
	config.InitConfig()
	cfg := config.Get()

	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	log.Printf("Migrating %s database schema...", cfg.DBType)
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	log.Println("Schema migration completed successfully!")
	return nil
}

type migrateOptions struct {
	fromType, toType string
	fromDSN, toDSN   string
	skipConfirm      bool
	batchSize        int
	onConflict       string
}

// migrateStats 迁移统计
type migrateStats struct {
	users   int64
	brands  int64
	watches int64
}

// runMigration 执行数据库迁移
func runMigration(ctx context.Context, opts migrateOptions) (*migrateStats, error) {
	if opts.onConflict != "skip" && opts.onConflict != "overwrite" && opts.onConflict != "error" {
		return nil, fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", opts.onConflict)
	}
	if opts.fromType == "" || opts.toType == "" {
		return nil, fmt.Errorf("both --from-type and --to-type are required")
	}
	if opts.fromDSN == "" || opts.toDSN == "" {
		return nil, fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if opts.fromType == opts.toType && opts.fromDSN == opts.toDSN {
		return nil, fmt.Errorf("source and target databases are the same")
	}
	if opts.batchSize <= 0 {
		opts.batchSize = 100
	}

	log.Printf("Migrating from %s to %s", opts.fromType, opts.toType)
	log.Printf("Source: %s", maskDSN(opts.fromDSN))
	log.Printf("Target: %s", maskDSN(opts.toDSN))
	log.Printf("Conflict strategy: %s", opts.onConflict)

	sourceDB, err := openDatabase(opts.fromType, opts.fromDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer func() { _ = database.Close(sourceDB) }()

	targetDB, err := openDatabase(opts.toType, opts.toDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer func() { _ = database.Close(targetDB) }()

	if !opts.skipConfirm {
		fmt.Println("\nWarning: This will migrate all data from source to target database.")
		fmt.Printf("Conflict resolution strategy: %s\n", opts.onConflict)
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return &migrateStats{}, nil
		}
	}

	log.Println("Migrating database schema...")
	if err := database.AutoMigrate(targetDB); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	stats := &migrateStats{}

	// 按外键依赖顺序
	log.Println("Migrating users...")
	if stats.users, err = copyTable[models.User](ctx, sourceDB, targetDB, opts); err != nil {
		return stats, fmt.Errorf("users migration failed: %w", err)
	}
	log.Println("Migrating brands...")
	if stats.brands, err = copyTable[models.Brand](ctx, sourceDB, targetDB, opts); err != nil {
		return stats, fmt.Errorf("brands migration failed: %w", err)
	}
	log.Println("Migrating watches...")
	if stats.watches, err = copyTable[models.Watch](ctx, sourceDB, targetDB, opts); err != nil {
		return stats, fmt.Errorf("watches migration failed: %w", err)
	}

	printMigrateStats(stats)
	log.Println("Migration completed successfully!")
	return stats, nil
}

// copyTable 分批复制一张表，冲突按主键处理
func copyTable[T any](ctx context.Context, sourceDB, targetDB *gorm.DB, opts migrateOptions) (int64, error) {
	var copied int64
	var rows []T

	target := targetDB.WithContext(ctx).Omit(clause.Associations)
	switch opts.onConflict {
	case "skip":
		target = target.Clauses(clause.OnConflict{DoNothing: true})
	case "overwrite":
		target = target.Clauses(clause.OnConflict{UpdateAll: true})
	}
	target = target.Session(&gorm.Session{})

	result := sourceDB.WithContext(ctx).FindInBatches(&rows, opts.batchSize, func(tx *gorm.DB, batch int) error {
		res := target.Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		copied += res.RowsAffected
		return nil
	})
	return copied, result.Error
}

// openDatabase 迁移使用独立的连接池，不读取全局配置
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	db, err := database.Open(dbType, dsn, nil)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

func printMigrateStats(stats *migrateStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	fmt.Printf("Users migrated:    %d\n", stats.users)
	fmt.Printf("Brands migrated:   %d\n", stats.brands)
	fmt.Printf("Watches migrated:  %d\n", stats.watches)
	fmt.Println("========================================")
}
