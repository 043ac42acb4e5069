// Package httpapi exposes the auth service over HTTP with a chi router.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// Authenticator resolves an access token to its principal.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// AuthService is the part of services.AuthService the handlers use.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (*services.TokenPair, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type revokeRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type revokeResponse struct {
	Revoked int64  `json:"revoked"`
	Message string `json:"message"`
}

type emailExistResponse struct {
	EmailExist bool `json:"emailExist"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Handler struct {
	auth AuthService
}

func NewHandler(auth AuthService) *Handler {
	return &Handler{auth: auth}
}

func pairResponse(p *services.TokenPair) tokenPairResponse {
	return tokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pairResponse(pair))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.auth.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

// revoke lets a principal retire all of its own renewal chains.
func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := userIDFromContext(r.Context())
	if req.UserID != caller {
		writeError(w, common.ErrForbidden)
		return
	}
	h.revokeAll(w, r, caller)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	caller, _ := userIDFromContext(r.Context())
	h.revokeAll(w, r, caller)
}

func (h *Handler) revokeAll(w http.ResponseWriter, r *http.Request, userID string) {
	n, err := h.auth.RevokeAll(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revokeResponse{Revoked: n, Message: "refresh tokens revoked"})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := userIDFromContext(r.Context())
	pair, err := h.auth.ChangePassword(r.Context(), caller, req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (h *Handler) checkEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := validate.Var(email, "required,email"); err != nil {
		writeError(w, common.ErrBadRequest)
		return
	}
	exists, err := h.auth.EmailExists(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emailExistResponse{EmailExist: exists})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller, _ := userIDFromContext(r.Context())
	user, err := h.auth.GetUser(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
