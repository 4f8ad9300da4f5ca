package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	commonhttp "github.com/devsanjithm/accountd/internal/common/http"
	"github.com/devsanjithm/accountd/internal/common/logger"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

type Handler struct {
	auth           *Service
	requestTimeout time.Duration
	log            *logger.Logger
}

func NewHandler(auth *Service, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{auth: auth, requestTimeout: requestTimeout, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", h.register)
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/auth/refresh", h.refresh)
	mux.HandleFunc("/api/auth/logout", h.logout)
	mux.HandleFunc("/api/auth/forgot-password", h.forgotPassword)
	mux.HandleFunc("/api/auth/reset-password", h.resetPassword)
	mux.HandleFunc("/api/auth/send-verification", h.sendVerification)
	mux.HandleFunc("/api/auth/verify-email", h.verifyEmail)
	mux.HandleFunc("/api/auth/me", h.me)
	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	_, result, err := h.auth.Register(ctx, RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	result, err := h.auth.Login(ctx, LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req refreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	result, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req refreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	if err := h.auth.Logout(ctx, req.RefreshToken); err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req forgotPasswordRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	// unknown emails get the same response as known ones
	if err := h.auth.ForgotPassword(ctx, req.Email); err != nil {
		h.log.Warnf("forgot password failed: %v", err)
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req resetPasswordRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	err := h.auth.ResetPassword(ctx, ResetPasswordInput{Token: req.Token, NewPassword: req.Password})
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	descriptor, err := h.auth.Authenticate(ctx, bearerToken(r))
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	if err := h.auth.SendVerificationEmail(ctx, descriptor.ID); err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, ok := h.post(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req verifyEmailRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	if err := h.auth.VerifyEmail(ctx, req.Token); err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	descriptor, err := h.auth.Authenticate(ctx, bearerToken(r))
	if err != nil {
		commonhttp.WriteDomainError(w, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, userResponse{
		ID:          descriptor.ID,
		Email:       descriptor.Email,
		DisplayName: descriptor.DisplayName,
		Roles:       descriptor.Roles,
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc, bool) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	return ctx, cancel, true
}

func bearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(raw, "Bearer ")
}
