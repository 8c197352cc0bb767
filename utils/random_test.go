package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomToken_Length(t *testing.T) {
	tests := []struct {
		inputLength int
		wantLength  int
	}{
		{16, 22},
		{32, 43},
		{64, 86},
	}

	for _, tt := range tests {
		token, err := GenerateRandomToken(tt.inputLength)
		require.NoError(t, err)
		assert.Len(t, token, tt.wantLength)
	}
}

// TestGenerateRandomToken_Concurrent 并发生成不重复
func TestGenerateRandomToken_Concurrent(t *testing.T) {
	var (
		mu     sync.Mutex
		seen   = make(map[string]bool)
		wg     sync.WaitGroup
		errors int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := GenerateRandomToken(32)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errors++
				return
			}
			seen[token] = true
		}()
	}
	wg.Wait()

	assert.Zero(t, errors)
	assert.Len(t, seen, 50)
}
