package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), "watch-images")
	require.NoError(t, err)
	return s
}

// TestLocalStorage_PathTraversal_Prevention 测试路径遍历防护
func TestLocalStorage_PathTraversal_Prevention(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	traversalAttempts := []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"../../.env",
		"..",
		".",
		"",
		"/absolute/path",
		"folder/../../../etc/passwd",
	}

	for _, attempt := range traversalAttempts {
		t.Run("put_"+attempt, func(t *testing.T) {
			err := s.PutWithContext(ctx, attempt, strings.NewReader("x"), 1, "image/jpeg")
			assert.Error(t, err, "Path traversal attempt should be rejected: %s", attempt)
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}

	_, err := s.GetWithContext(ctx, "../../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.DeleteWithContext(ctx, "../../../etc/passwd"), ErrInvalidKey)
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	key := "owner-1/watch-1/watch_watch-1_1700000000000.jpg"

	require.NoError(t, s.PutWithContext(ctx, key, strings.NewReader("jpeg bytes"), 10, "image/jpeg"))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	obj, err := s.GetWithContext(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, obj.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	assert.Equal(t, int64(10), obj.Size)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	require.NoError(t, s.DeleteWithContext(ctx, key))

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	// 空目录已被清理，bucket 根目录保留
	_, err = os.Stat(filepath.Join(s.BasePath(), "owner-1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(s.BasePath())
	assert.NoError(t, err)
}

func TestLocalStorage_PutDoesNotOverwrite(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	key := "owner/watch/watch_watch_1.jpg"

	require.NoError(t, s.PutWithContext(ctx, key, strings.NewReader("first"), 5, "image/jpeg"))

	err := s.PutWithContext(ctx, key, strings.NewReader("second"), 6, "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, "conflict", Reason(err))

	obj, err := s.GetWithContext(ctx, key)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "first", string(data))
}

func TestLocalStorage_MissingObject(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	err := s.DeleteWithContext(ctx, "owner/watch/missing.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "not_found", Reason(err))

	_, err = s.GetWithContext(ctx, "owner/watch/missing.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_Health(t *testing.T) {
	s := newTestLocal(t)
	assert.NoError(t, s.Health(context.Background()))

	require.NoError(t, os.RemoveAll(s.BasePath()))
	err := s.Health(context.Background())
	assert.Error(t, err)
}

func TestNewLocalStorage_InvalidBucket(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir(), "")
	assert.Error(t, err)

	_, err = NewLocalStorage(t.TempDir(), "a/b")
	assert.Error(t, err)
}

func TestIsValidStoragePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"image.jpg", true},
		{"5b0d7c1e-1111-4c5d-9a47-000000000001/watch/watch_1.jpg", true},
		{"", false},
		{"/abs/path.jpg", false},
		{"a/../b.jpg", false},
		{"file\x00.jpg", false},
		{"with space.jpg", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidStoragePath(tt.path), "path %q", tt.path)
	}
}
