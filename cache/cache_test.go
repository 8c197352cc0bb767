package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/anoixa/watchbox/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilder(t *testing.T) {
	assert.Equal(t, "watchbox:records:u1", Records.Build("u1"))
	assert.Equal(t, "watchbox:records", Records.Build())
	assert.Equal(t, "watchbox:records:42", Records.BuildID(42))
	assert.Equal(t, "watchbox:brands:global", BrandScopeKey(""))
	assert.Equal(t, "watchbox:brands:owner:u1", BrandScopeKey("u1"))
}

func TestIsCacheMiss(t *testing.T) {
	assert.True(t, IsCacheMiss(ErrCacheMiss))
	assert.True(t, IsCacheMiss(fmt.Errorf("wrap: %w", ErrCacheMiss)))
	assert.False(t, IsCacheMiss(nil))
	assert.False(t, IsCacheMiss(fmt.Errorf("other")))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.Config{CacheType: "memory"})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "memory", p.Name())
	assert.NoError(t, p.Health(context.Background()))

	_, err = NewProvider(&config.Config{CacheType: "memcached"})
	assert.Error(t, err)
}
