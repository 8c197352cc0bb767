package storage

import "errors"

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrObjectExists     = errors.New("object already exists")
	ErrBucketNotFound   = errors.New("bucket not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrEntityTooLarge   = errors.New("object too large")
	ErrInvalidKey       = errors.New("invalid storage key")
)

// Reason 将存储错误归类为简短原因，用于上层错误信息
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrObjectExists):
		return "conflict"
	case errors.Is(err, ErrObjectNotFound):
		return "not_found"
	case errors.Is(err, ErrBucketNotFound):
		return "bucket_missing"
	case errors.Is(err, ErrPermissionDenied):
		return "permission"
	case errors.Is(err, ErrEntityTooLarge):
		return "too_large"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	default:
		return "unknown"
	}
}

// classifyCode S3 兼容错误码映射
func classifyCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return ErrObjectNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrPermissionDenied
	case "EntityTooLarge":
		return ErrEntityTooLarge
	case "PreconditionFailed", "ConditionalRequestConflict":
		return ErrObjectExists
	}
	return nil
}
