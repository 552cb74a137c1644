package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jobfund/internal/auth"
	"jobfund/internal/core"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// UserService handles registration, login and email verification.
// Verification emails go out through the publisher; a nil publisher
// disables them, which keeps single-binary deployments working.
type UserService struct {
	store      UserStore
	tokens     *auth.TokenManager
	publisher  VerificationPublisher
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewUserService(store UserStore, tokens *auth.TokenManager, publisher VerificationPublisher, refreshTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{
		store:      store,
		tokens:     tokens,
		publisher:  publisher,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an unverified account and queues the verification
// email. Publish failures are logged but do not fail the registration;
// the user can request the email again.
func (s *UserService) Register(ctx context.Context, email, password string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	if existing, err := s.store.FindUserByEmail(ctx, email); err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		Email:             email,
		PasswordHash:      string(hash),
		VerificationToken: uuid.NewString(),
		CreatedAt:         s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishVerificationEmail(ctx, user.ID, user.Email, user.VerificationToken); err != nil {
			s.logger.Error("failed to publish verification email", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// Authenticate checks credentials and issues a token pair. Unverified
// accounts cannot log in.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}
	return s.issuePair(ctx, user)
}

// Refresh rotates a refresh token and issues a new pair. The old token
// is deleted whether or not issuance succeeds, so a stolen token can be
// used at most once.
func (s *UserService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	stored, err := s.store.FindRefreshToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if err := s.store.DeleteRefreshToken(ctx, token); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}
	if stored.Expired(s.now()) {
		return nil, ErrInvalidRefresh
	}
	user, err := s.store.FindUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	return s.issuePair(ctx, user)
}

// Logout invalidates a refresh token. Unknown tokens are a no-op.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.store.DeleteRefreshToken(ctx, token)
}

// VerifyEmail flips the account to verified given a valid token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.store.FindUserByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.store.MarkUserVerified(ctx, user.ID)
}

// Me returns the account behind an access token's user id.
func (s *UserService) Me(ctx context.Context, userID int64) (*core.User, error) {
	return s.store.FindUserByID(ctx, userID)
}

func (s *UserService) issuePair(ctx context.Context, user *core.User) (*TokenPair, error) {
	now := s.now()
	access, err := s.tokens.Issue(user.ID, user.Email, now)
	if err != nil {
		return nil, err
	}
	refresh := core.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.store.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
	}, nil
}
