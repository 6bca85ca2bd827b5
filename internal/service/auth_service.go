package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/mindful-youth-api/internal/dto"
	"github.com/noah-isme/mindful-youth-api/internal/middleware"
	"github.com/noah-isme/mindful-youth-api/internal/models"
	"github.com/noah-isme/mindful-youth-api/internal/observability"
	"github.com/noah-isme/mindful-youth-api/internal/repository"
)

const tokenTypeRefresh = "refresh"

var (
	// ErrEmailTaken indicates an account with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken indicates a malformed, expired or revoked token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenBlocklist remembers signed-out token ids until they would have expired anyway.
type TokenBlocklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AuthService manages email/password accounts and their tokens.
type AuthService interface {
	SignUp(ctx context.Context, req dto.SignUpRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time, refreshToken string) error
	Me(ctx context.Context, userID string) (dto.ProfileResponse, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type authService struct {
	users     repository.UserRepository
	blocklist TokenBlocklist
	config    AuthConfig
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

var _ middleware.TokenRevoker = (*authService)(nil)

// NewAuthService constructs the account service.
func NewAuthService(users repository.UserRepository, blocklist TokenBlocklist, cfg AuthConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if blocklist == nil {
		blocklist = NewMemoryTokenBlocklist()
	}

	return &authService{
		users:     users,
		blocklist: blocklist,
		config:    cfg,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, req dto.SignUpRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		observability.AuthEvents().WithLabelValues("signup", "conflict").Inc()
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.UserProfile{
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AuthResponse{}, ErrEmailTaken
		}
		return dto.AuthResponse{}, fmt.Errorf("create user: %w", err)
	}

	observability.AuthEvents().WithLabelValues("signup", "success").Inc()
	s.logger.Info().Str("user_id", user.ID).Msg("account created")
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AuthEvents().WithLabelValues("login", "failure").Inc()
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		observability.AuthEvents().WithLabelValues("login", "failure").Inc()
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	observability.AuthEvents().WithLabelValues("login", "success").Inc()
	return s.issue(user)
}

// Refresh rotates the token pair; the presented refresh token cannot be used twice.
func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	claims, err := s.parse(req.RefreshToken, s.config.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		observability.AuthEvents().WithLabelValues("refresh", "failure").Inc()
		return dto.AuthResponse{}, err
	}

	revoked, err := s.blocklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	if revoked {
		observability.AuthEvents().WithLabelValues("refresh", "revoked").Inc()
		return dto.AuthResponse{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidToken
		}
		return dto.AuthResponse{}, err
	}

	if err := s.blocklist.Revoke(ctx, claims.ID, s.remaining(claims.ExpiresAt)); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("revoke refresh token: %w", err)
	}

	observability.AuthEvents().WithLabelValues("refresh", "success").Inc()
	return s.issue(user)
}

// Logout revokes the access token and, when given, the paired refresh token.
func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time, refreshToken string) error {
	if strings.TrimSpace(tokenID) != "" {
		ttl := expiresAt.Sub(s.now())
		if expiresAt.IsZero() || ttl <= 0 {
			ttl = s.config.AccessTTL
		}
		if err := s.blocklist.Revoke(ctx, tokenID, ttl); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}

	if strings.TrimSpace(refreshToken) != "" {
		claims, err := s.parse(refreshToken, s.config.RefreshSecret, tokenTypeRefresh)
		if err == nil {
			if err := s.blocklist.Revoke(ctx, claims.ID, s.remaining(claims.ExpiresAt)); err != nil {
				return fmt.Errorf("revoke refresh token: %w", err)
			}
		}
	}

	observability.AuthEvents().WithLabelValues("logout", "success").Inc()
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(user), nil
}

func (s *authService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.blocklist.IsRevoked(ctx, tokenID)
}

func (s *authService) issue(user models.UserProfile) (dto.AuthResponse, error) {
	access, err := s.sign(user.ID, middleware.TokenTypeAccess, s.config.AccessSecret, s.config.AccessTTL)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	refresh, err := s.sign(user.ID, tokenTypeRefresh, s.config.RefreshSecret, s.config.RefreshTTL)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{
		Tokens: dto.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
		},
		User: dto.NewProfileResponse(user),
	}, nil
}

func (s *authService) sign(subject, tokenType, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"typ": tokenType,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

type parsedClaims struct {
	ID        string
	Subject   string
	ExpiresAt time.Time
}

func (s *authService) parse(tokenString, secret, tokenType string) (parsedClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return parsedClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return parsedClaims{}, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != tokenType {
		return parsedClaims{}, ErrInvalidToken
	}

	subject, _ := claims.GetSubject()
	id, _ := claims["jti"].(string)
	if subject == "" || id == "" {
		return parsedClaims{}, ErrInvalidToken
	}

	parsed := parsedClaims{ID: id, Subject: subject}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		parsed.ExpiresAt = exp.Time
	}
	return parsed, nil
}

func (s *authService) remaining(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

type redisTokenBlocklist struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenBlocklist stores revoked token ids as expiring Redis keys.
func NewRedisTokenBlocklist(client *redis.Client, prefix string) TokenBlocklist {
	if prefix == "" {
		prefix = "mindful"
	}
	return &redisTokenBlocklist{client: client, prefix: prefix + ":revoked:"}
}

func (b *redisTokenBlocklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return b.client.Set(ctx, b.prefix+tokenID, "1", ttl).Err()
}

func (b *redisTokenBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryTokenBlocklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryTokenBlocklist keeps revocations in process, for single-node setups without Redis.
func NewMemoryTokenBlocklist() TokenBlocklist {
	return &memoryTokenBlocklist{revoked: make(map[string]time.Time), now: time.Now}
}

func (b *memoryTokenBlocklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, until := range b.revoked {
		if !until.After(now) {
			delete(b.revoked, id)
		}
	}
	b.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (b *memoryTokenBlocklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.revoked[tokenID]
	return ok && until.After(b.now()), nil
}
