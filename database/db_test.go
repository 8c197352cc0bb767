package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anoixa/watchbox/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open("mysql", "root@/db", nil)
	assert.Error(t, err)
}

func TestDSNFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "watchbox.db")
	dbType, dsn, err := dsnFromConfig(&config.Config{DBType: "sqlite", DBFilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dbType)
	assert.True(t, strings.HasPrefix(dsn, path+"?"))
	assert.DirExists(t, filepath.Dir(path))

	dbType, dsn, err = dsnFromConfig(&config.Config{
		DBType: "postgres", DBHost: "db", DBPort: 5432, DBUsername: "watch", DBPassword: "pw", DBName: "watchbox",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres", dbType)
	assert.Contains(t, dsn, "host=db port=5432 user=watch")

	_, _, err = dsnFromConfig(&config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestNewDB_SQLiteMigrateAndPing(t *testing.T) {
	cfg := &config.Config{DBType: "sqlite", DBFilePath: filepath.Join(t.TempDir(), "watchbox.db"), DBMaxOpenConns: 2}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, AutoMigrate(db))
	assert.NoError(t, Ping(context.Background(), db))
}
