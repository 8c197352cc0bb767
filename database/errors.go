package database

import (
	"errors"
	"strings"

	"github.com/anoixa/watchbox/internal/apperr"
	"gorm.io/gorm"
)

// TranslateError 将 gorm 错误转换为业务错误
func TranslateError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity + " not found")
	case IsDuplicateKey(err):
		return apperr.Wrap(apperr.KindConflict, entity+" already exists", err)
	default:
		return apperr.FromContext(err, apperr.KindInternal, "Database operation failed")
	}
}

// IsDuplicateKey 判断是否为唯一约束冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
