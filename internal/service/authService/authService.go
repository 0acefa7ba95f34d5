package authService

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/model/session"
	"filetree-service/internal/model/user"
	"filetree-service/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	minPasswordLen        = 6
	defaultTokenTTL       = 24 * time.Hour
	defaultDemoSessionTTL = 24 * time.Hour
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type DemoSessionRepository interface {
	Create(ctx context.Context, s *session.DemoSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*session.DemoSession, error)
}

type TokenBlacklist interface {
	AddToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

type Config struct {
	JWTSecret      string
	TokenTTL       time.Duration
	DemoSessionTTL time.Duration
	BcryptCost     int
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users     UserRepository
	demo      DemoSessionRepository
	blacklist TokenBlacklist
	cfg       Config
	now       func() time.Time
}

// New builds the service. blacklist may be nil, in which case tokens cannot be revoked.
func New(users UserRepository, demo DemoSessionRepository, blacklist TokenBlacklist, cfg Config) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.DemoSessionTTL <= 0 {
		cfg.DemoSessionTTL = defaultDemoSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, demo: demo, blacklist: blacklist, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*session.Session, error) {
	email = normalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return nil, common.ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, common.ErrPasswordTooShort
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %q: %w", email, common.ErrAlreadyExists)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &user.User{ID: uuid.New(), Email: email, PasswordHash: &hash}
	if err := s.users.Create(ctx, u); err != nil {
		// a concurrent sign-up can still win the unique index
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, common.RepositoryFailure(err)
	}

	logger.GetLogger(ctx).Info("user signed up", zap.String("user_id", u.ID.String()))
	return s.newSession(u)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	log := logger.GetLogger(ctx)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	switch {
	case u == nil:
		log.Debug("sign in rejected: unknown email")
		return nil, common.ErrInvalidCredentials
	case !u.HasPassword():
		log.Debug("sign in rejected: account has no password", zap.String("user_id", u.ID.String()))
		return nil, common.ErrInvalidCredentials
	case !s.VerifyPassword(password, *u.PasswordHash):
		log.Debug("sign in rejected: wrong password", zap.String("user_id", u.ID.String()))
		return nil, common.ErrInvalidCredentials
	}
	return s.newSession(u)
}

// IssueToken signs a bearer token for u. The returned expiry matches the token's exp claim.
func (s *AuthService) IssueToken(u *user.User) (string, time.Time, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.cfg.TokenTTL)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyToken checks signature, algorithm, expiry and revocation.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*session.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		logger.GetLogger(ctx).Debug("token rejected", zap.Error(err))
		return nil, common.ErrInvalidToken
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, common.RepositoryFailure(err)
		}
		if revoked {
			return nil, common.ErrInvalidToken
		}
	}

	identity := &session.Identity{
		SubjectID: subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

// ResolveUser verifies token and loads its subject. It returns nil, nil when
// the user no longer exists.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (*user.User, error) {
	identity, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, identity.SubjectID)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	return u, nil
}

// Authenticate is ResolveUser for callers that need a live account: a token
// whose subject was deleted is reported as invalid.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*user.User, error) {
	u, err := s.ResolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, common.ErrInvalidToken
	}
	return u, nil
}

// Refresh issues a new token for the owner of token and revokes the old one.
func (s *AuthService) Refresh(ctx context.Context, token string) (*session.Session, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	sess, err := s.newSession(u)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, token); err != nil {
		logger.GetLogger(ctx).Warn("failed to revoke refreshed token", zap.Error(err))
	}
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if _, err := s.VerifyToken(ctx, token); err != nil {
		return err
	}
	if err := s.revoke(ctx, token); err != nil {
		return common.RepositoryFailure(err)
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, token string) error {
	if s.blacklist == nil {
		return nil
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return s.blacklist.AddToken(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *AuthService) CreateDemoSession(ctx context.Context) (*session.Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	demo := &session.DemoSession{
		ID:           uuid.New(),
		SessionToken: token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.DemoSessionTTL),
	}
	if err := s.demo.Create(ctx, demo); err != nil {
		return nil, common.RepositoryFailure(err)
	}

	logger.GetLogger(ctx).Info("demo session created",
		zap.String("session_id", demo.ID.String()),
		zap.Time("expires_at", demo.ExpiresAt))
	return &session.Session{
		Kind:        session.KindDemo,
		PrincipalID: demo.ID,
		Token:       demo.SessionToken,
		ExpiresAt:   demo.ExpiresAt,
	}, nil
}

// ResolveDemoSession fails with ErrNotFound for unknown ids and with
// ErrSessionExpired from expires_at onwards.
func (s *AuthService) ResolveDemoSession(ctx context.Context, id uuid.UUID) (*session.DemoSession, error) {
	demo, err := s.demo.GetByID(ctx, id)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	if demo == nil {
		return nil, fmt.Errorf("demo session %s: %w", id, common.ErrNotFound)
	}
	if demo.ExpiredAt(s.now()) {
		return nil, fmt.Errorf("demo session %s: %w", id, common.ErrSessionExpired)
	}
	return demo, nil
}

func (s *AuthService) newSession(u *user.User) (*session.Session, error) {
	token, expiresAt, err := s.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &session.Session{
		Kind:        session.KindUser,
		PrincipalID: u.ID,
		User:        u,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
