package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/database/repo/accounts"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/utils"
	cryptopackage "github.com/anoixa/watchbox/utils/crypto"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTypeAccess = "access"

// LoginResult 登录结果
type LoginResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Service 认证服务，签发和校验 JWT
type Service struct {
	accounts  *accounts.Repository
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewService 创建认证服务
func NewService(accountsRepo *accounts.Repository, secret string, expiresIn time.Duration) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT secret is not initialized")
	}
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &Service{
		accounts:  accountsRepo,
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       time.Now,
	}, nil
}

// Login 校验用户名密码并签发访问令牌
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("Username and password are required")
	}

	user, err := s.accounts.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Auth("Invalid username or password")
	}

	ok, err := cryptopackage.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, apperr.Internal("Password comparison failed", err)
	}
	if !ok {
		log.Printf("[Auth] Failed login for user %s", utils.SanitizeLogUsername(username))
		return nil, apperr.Auth("Invalid username or password")
	}

	// 参数变化后顺带升级哈希
	if cryptopackage.NeedsRehash(user.Password) {
		if hashed, err := cryptopackage.GenerateFromPassword(password); err == nil {
			if err := s.accounts.UpdatePassword(ctx, user.ID, hashed); err != nil {
				log.Printf("[Auth] Failed to rehash password for user %s: %v", user.ID, err)
			}
		}
	}

	token, expiresAt, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("Failed to generate token", err)
	}

	return &LoginResult{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// GenerateAccessToken 签发访问令牌
func (s *Service) GenerateAccessToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiresIn)
	claims := jwt.MapClaims{
		"username": user.Username,
		"user_id":  user.ID,
		"type":     tokenTypeAccess,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseToken 校验令牌并返回用户 id
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", apperr.Wrap(apperr.KindAuth, "Invalid or expired token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperr.Auth("Invalid or expired token")
	}
	if typ, _ := claims["type"].(string); typ != tokenTypeAccess {
		return "", apperr.Auth("Invalid token type")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", apperr.Auth("Invalid token claims")
	}
	return userID, nil
}

// CreateUser 创建用户
func (s *Service) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	return CreateUser(ctx, s.accounts, username, password)
}

// CreateUser 哈希密码并写入用户，命令行也直接使用
func CreateUser(ctx context.Context, repo *accounts.Repository, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("Username is required")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("Password must be at least 8 characters")
	}

	hashed, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}

	user := &models.User{Username: username, Password: hashed}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[Auth] Created user %s", utils.SanitizeLogUsername(username))
	return user, nil
}
