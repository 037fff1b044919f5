package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/services"
)

// AuthAPI is the service surface the handlers need. *services.AuthService
// implements it.
type AuthAPI interface {
	auth.Authenticator
	Register(ctx context.Context, in services.RegisterInput) (*models.Principal, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) (auth.Identity, error)
	Profile(ctx context.Context, subjectID string) (*models.Principal, error)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	UserType string `json:"userType"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is the principal projection embedded in the login response.
type UserView struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	UserType models.Role `json:"userType"`
}

type LoginResponse struct {
	Message     string   `json:"message"`
	AccessToken string   `json:"accessToken"`
	User        UserView `json:"user"`
}

type LogoutResponse struct {
	Message  string      `json:"message"`
	UserType models.Role `json:"userType"`
	Email    string      `json:"email"`
}

type MeResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	UserType  models.Role `json:"userType"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Handler serves the /auth and profile endpoints.
type Handler struct {
	svc AuthAPI
	log logging.Logger
}

func NewHandler(svc AuthAPI, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("module", "http")}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeErrorMessage(w, status, msg)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := parseJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.svc.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		UserType: req.UserType,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.fail(w, r, fmt.Errorf("%w: email and password are required", common.ErrValidation))
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     MsgLoginOK,
		AccessToken: res.Token,
		User: UserView{
			ID:       res.Principal.ID,
			Email:    res.Principal.Email,
			Name:     res.Principal.Name,
			UserType: res.Principal.Role,
		},
	})
}

// Logout runs behind Guards.Logout, which has already decoded the token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	guarded, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.ErrMissingToken)
		return
	}

	id, err := h.svc.Logout(r.Context(), guarded.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LogoutResponse{
		Message:  MsgLogoutOK,
		UserType: id.Role,
		Email:    id.Email,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		ID:        id.SubjectID,
		Email:     id.Email,
		UserType:  id.Role,
		IssuedAt:  id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
	})
}

// Profile returns the stored principal behind the token.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.ErrUnauthorized)
		return
	}
	p, err := h.svc.Profile(r.Context(), id.SubjectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
