// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy; hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// Register creates a new user account on the free plan.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns the user and raw session token on success.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token.
	// This is idempotent - calling with an invalid token is not an error.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	// Returns domain.ENOTFOUND if user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken retrieves a user by their session token.
	// Returns domain.EUNAUTHORIZED if token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteExpiredSessions removes all expired sessions from the database.
	// This should be called periodically (e.g., daily) to clean up.
	DeleteExpiredSessions(ctx context.Context) error
}

type userService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		logger:  logger,
	}
}

func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError(op, "email", "a valid email address is required")
	}
	if strings.TrimSpace(params.FullName) == "" {
		return nil, domain.NewValidationError(op, "full_name", "full name is required")
	}
	if !domain.ValidRole(params.Role) {
		return nil, domain.NewValidationError(op, "role", "role must be teacher or student")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	user, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(params.FullName),
		Role:         params.Role,
		Phone:        strings.TrimSpace(params.Phone),
		Country:      strings.TrimSpace(params.Country),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "an account with this email or phone already exists")
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a hash comparison anyway so response timing does not
			// reveal whether the email exists.
			comparePassword("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalid..", password)
			return nil, domain.Unauthorized(op, "invalid email or password")
		}
		return nil, domain.Internal(err, op, "failed to look up user")
	}

	if !comparePassword(user.PasswordHash, password) {
		return nil, domain.Unauthorized(op, "invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, user.ID, hashToken(token), time.Now().Add(SessionDuration))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &domain.LoginResult{User: user, Token: token}, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "user.logout"

	if err := s.queries.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return domain.Internal(err, op, "failed to delete session")
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}
	return user, nil
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	session, err := s.queries.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "invalid session")
		}
		return nil, domain.Internal(err, op, "failed to fetch session")
	}

	if session.IsExpired() {
		return nil, domain.Unauthorized(op, "session expired")
	}

	user, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch session user")
	}
	return user, nil
}

func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "user.delete_expired_sessions"

	count, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to delete expired sessions")
	}
	if count > 0 {
		s.logger.Info("expired sessions removed", "count", count)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// validatePassword enforces the password policy: 8-72 characters with at
// least one letter and one digit.
func validatePassword(password string) error {
	const op = "user.validate_password"

	if len(password) < MinPasswordLength {
		return domain.NewValidationError(op, "password", "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.NewValidationError(op, "password", "password is too long")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return domain.NewValidationError(op, "password", "password must contain at least one letter")
	}
	if !hasDigit {
		return domain.NewValidationError(op, "password", "password must contain at least one number")
	}
	return nil
}

// generateSessionToken returns a hex-encoded random token.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken returns the SHA-256 hex digest of a raw session token.
// Only the hash is stored, so a leaked sessions table cannot be replayed.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
