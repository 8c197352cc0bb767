package auth

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/database/repo/accounts"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupService(t *testing.T) *Service {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc, err := NewService(accounts.NewRepository(db), "test-secret", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(nil, "", time.Hour)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "alice", "another-pass")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.CreateUser(ctx, "bob", "short")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = svc.Login(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	res, err := svc.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	userID, err := svc.ParseToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestParseToken_Rejects(t *testing.T) {
	svc := setupService(t)
	user := &models.User{ID: "u1", Username: "alice"}

	_, err := svc.ParseToken("garbage")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	other, err := NewService(nil, "other-secret", time.Hour)
	require.NoError(t, err)
	token, _, err := other.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	// 过期令牌
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}
