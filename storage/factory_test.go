package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Local(t *testing.T) {
	provider, bucket, err := NewProvider(map[string]interface{}{
		"type":       "local",
		"bucket":     "watch-images",
		"local_path": t.TempDir(),
		"use_ssl":    false,
	})
	require.NoError(t, err)
	assert.Equal(t, "local", provider.Name())
	assert.Equal(t, "watch-images", bucket)

	f := NewFactoryWithProvider(provider, bucket)
	assert.Equal(t, provider, f.GetDefault())
	assert.Equal(t, "watch-images", f.Bucket())
}

func TestNewProvider_Errors(t *testing.T) {
	_, _, err := NewProvider(map[string]interface{}{"type": "ftp", "bucket": "b"})
	assert.Error(t, err)

	_, _, err = NewProvider(map[string]interface{}{"type": "minio", "bucket": "b"})
	assert.Error(t, err, "minio requires an endpoint")

	_, _, err = NewProvider(map[string]interface{}{"type": "s3"})
	assert.Error(t, err, "s3 requires a bucket")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "bucket_missing", Reason(ErrBucketNotFound))
	assert.Equal(t, "permission", Reason(ErrPermissionDenied))
	assert.Equal(t, "too_large", Reason(ErrEntityTooLarge))
	assert.Equal(t, "invalid_key", Reason(ErrInvalidKey))
}
