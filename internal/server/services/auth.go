// Package services contains server-side business logic. AuthService handles
// registration, login, logout and bearer authentication for volunteers and
// NGOs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/cryptox"
	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/observability"
	"github.com/dmitrijs2005/volunteerhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/volunteerhub/internal/server/revocation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinPasswordLength is enforced at registration only.
const MinPasswordLength = 6

var tracer = otel.Tracer("volunteerhub/server/services")

// Seams for tests.
var (
	hashPassword   = cryptox.HashPassword
	verifyPassword = cryptox.VerifyPassword
	burnVerify     = cryptox.BurnVerify
	newPrincipalID = uuid.NewString
)

// RegisterInput is a signup request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	UserType string
}

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal *models.Principal
}

// AuthService ties the credential store, the token issuer/validator and the
// revocation list together.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	validator   *auth.Validator
	revoked     revocation.List
	metrics     *observability.Metrics
	log         logging.Logger
}

// NewAuthService wires an AuthService. metrics may be nil.
func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	issuer *auth.Issuer,
	validator *auth.Validator,
	revoked revocation.List,
	metrics *observability.Metrics,
	log logging.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		validator:   validator,
		revoked:     revoked,
		metrics:     metrics,
		log:         log.With("module", "auth"),
	}
}

// NormalizeEmail trims and lower-cases an address. Emails are stored and
// looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(in RegisterInput) (string, models.Role, error) {
	email := NormalizeEmail(in.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "", fmt.Errorf("%w: email is invalid", common.ErrValidation)
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return "", "", fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLength)
	}
	if strings.TrimSpace(in.Name) == "" {
		return "", "", fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	role, err := models.ParseRole(in.UserType)
	if err != nil {
		return "", "", fmt.Errorf("%w: userType must be volunteer or ngo", common.ErrValidation)
	}
	return email, role, nil
}

// Register creates a principal. The role chosen here never changes.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Principal, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	p, err := s.register(ctx, in)
	s.metrics.ObserveRegistration(outcome(err))
	s.endSpan(span, err)
	return p, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (*models.Principal, error) {
	email, role, err := validateRegistration(in)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword([]byte(in.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &models.Principal{
		ID:           newPrincipalID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
	}

	created, err := s.repomanager.Principals(s.db).Create(ctx, p)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		s.log.Error(ctx, "create principal", "error", err)
		return nil, fmt.Errorf("create principal: %w", err)
	}

	s.log.Info(ctx, "principal registered", "id", created.ID, "role", created.Role)
	return created, nil
}

// Login checks credentials and issues a token. An unknown email and a wrong
// password produce the same error and cost the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	res, err := s.login(ctx, NormalizeEmail(email), password)
	s.metrics.ObserveLogin(outcome(err))
	s.endSpan(span, err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*LoginResult, error) {
	p, err := s.repomanager.Principals(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			burnVerify([]byte(password))
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "lookup principal", "error", err)
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	ok, err := verifyPassword([]byte(password), p.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "verify password", "id", p.ID, "error", err)
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Issue(p.ID, p.Email, p.Role)
	if err != nil {
		s.log.Error(ctx, "issue token", "id", p.ID, "error", err)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info(ctx, "login", "id", p.ID, "role", p.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Principal: p}, nil
}

// Inspect decodes a token without consulting the revocation list.
func (s *AuthService) Inspect(token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, common.ErrMissingToken
	}
	return s.validator.Validate(token)
}

// Authenticate decodes token and rejects it if it has been revoked. Backend
// failures are returned as internal errors so that callers fail closed.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	id, err := s.authenticate(ctx, token)
	s.endSpan(span, err)
	return id, err
}

func (s *AuthService) authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.Inspect(token)
	if err != nil {
		return auth.Identity{}, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		s.log.Error(ctx, "revocation lookup", "error", err)
		return auth.Identity{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return auth.Identity{}, common.ErrInvalidToken
	}
	return id, nil
}

// Logout revokes token until its own expiry. Other tokens of the same
// principal stay valid. Logging out an already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) (auth.Identity, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	id, err := s.logout(ctx, token)
	s.metrics.ObserveLogout(outcome(err))
	s.endSpan(span, err)
	return id, err
}

func (s *AuthService) logout(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.Inspect(token)
	if err != nil {
		return auth.Identity{}, err
	}
	if !id.Role.Valid() {
		return auth.Identity{}, common.ErrForbidden
	}

	if err := s.revoked.Revoke(ctx, token, id.ExpiresAt); err != nil {
		s.log.Error(ctx, "revoke token", "id", id.SubjectID, "error", err)
		return auth.Identity{}, fmt.Errorf("revoke token: %w", err)
	}

	s.log.Info(ctx, "logout", "id", id.SubjectID, "role", id.Role)
	return id, nil
}

// Profile loads the principal behind an authenticated identity.
func (s *AuthService) Profile(ctx context.Context, subjectID string) (*models.Principal, error) {
	p, err := s.repomanager.Principals(s.db).GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return p, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return common.Kind(err).String()
}

// endSpan marks the span failed only for internal errors; rejected
// credentials are normal traffic.
func (s *AuthService) endSpan(span trace.Span, err error) {
	span.SetAttributes(attribute.String("auth.outcome", outcome(err)))
	if err != nil && common.Kind(err) == common.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
