package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Finalize())

	assert.Equal(t, int64(10*1024*1024), cfg.ImageMaxSizeBytes())
	assert.Equal(t, BrandScopeGlobal, cfg.BrandScope)
	assert.Equal(t, "watch-images", cfg.StorageBucket)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultImageMaxDimension, cfg.ImageMaxDimension)
	assert.False(t, cfg.IsOwnerBrandScope())
}

func TestFinalize_ImageMaxDimension(t *testing.T) {
	cfg := &Config{ImageMaxDimension: 2048}
	require.NoError(t, cfg.Finalize())
	assert.Equal(t, 2048, cfg.ImageMaxDimension)

	cfg = &Config{ImageMaxDimension: -1}
	assert.Error(t, cfg.Finalize())
}

func TestFinalize_ImageMaxSize(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{name: "mebibytes", value: "5MiB", want: 5 * 1024 * 1024},
		{name: "short form", value: "2m", want: 2 * 1024 * 1024},
		{name: "plain bytes", value: "1024", want: 1024},
		{name: "garbage", value: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ImageMaxSize: tt.value}
			err := cfg.Finalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.ImageMaxSizeBytes())
		})
	}
}

func TestFinalize_BrandScope(t *testing.T) {
	cfg := &Config{BrandScope: BrandScopeOwner}
	require.NoError(t, cfg.Finalize())
	assert.True(t, cfg.IsOwnerBrandScope())

	cfg = &Config{BrandScope: "tenant"}
	assert.Error(t, cfg.Finalize())
}

func TestBaseURL(t *testing.T) {
	cfg := &Config{ServerHost: "0.0.0.0", ServerPort: 9000}
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL())
	assert.Equal(t, "http://localhost:9000", cfg.PublicImageBaseURL())

	cfg.ServerDomain = "https://watches.example.com/"
	assert.Equal(t, "https://watches.example.com", cfg.BaseURL())

	cfg.StoragePublicURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com", cfg.PublicImageBaseURL())
}

func TestAddr(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())

	cfg = &Config{ServerHost: "127.0.0.1", ServerPort: 3000}
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}

func TestVersionString(t *testing.T) {
	oldVersion, oldCommit := Version, CommitHash
	defer func() { Version, CommitHash = oldVersion, oldCommit }()

	Version, CommitHash = "1.2.0", ""
	assert.Equal(t, "1.2.0 (n/a)", VersionString())
	assert.False(t, IsDevelopment())

	Version, CommitHash = "dev", "abc123"
	assert.Equal(t, "dev (abc123)", VersionString())
	assert.True(t, IsDevelopment())
}
