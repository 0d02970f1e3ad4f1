package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/GustavoFMorales/api-login-mentoria/internal/app"
	"github.com/GustavoFMorales/api-login-mentoria/internal/domain"
)

// AuthHandler handles the account authentication endpoints.
type AuthHandler struct {
	service *app.Service
}

// NewAuthHandler creates a new handler for the auth endpoints.
func NewAuthHandler(service *app.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	err := h.service.Register(r.Context(), req.Name, req.Email, req.Secret)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Account registered successfully"})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Name, email and secret are required")
	case errors.Is(err, domain.ErrDuplicateAccount):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Account already registered")
	default:
		writeInternalError(w, err)
	}
}

// Login handles POST /auth/login. Not-found, bad credential and locked all
// map to 401 with distinct machine-readable kinds.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	tok, err := h.service.Login(r.Context(), req.Email, req.Secret)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Login successful",
			"token":   tok,
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Email and secret are required")
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusUnauthorized, domain.ErrorKind(err), "Account not found")
	case errors.Is(err, domain.ErrAccountLocked):
		writeError(w, http.StatusUnauthorized, domain.ErrorKind(err), "Account locked")
	case errors.Is(err, domain.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, domain.ErrorKind(err), "Incorrect password")
	default:
		writeInternalError(w, err)
	}
}

// Recover handles POST /auth/recover. The recovery code is persisted before
// delivery, so a 500 here means "code generated but undelivered".
func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	err := h.service.RequestRecovery(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Recovery code sent to your email"})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Email is required")
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, domain.ErrorKind(err), "Account not found")
	case errors.Is(err, domain.ErrNotify):
		log.Printf("Recovery code persisted but delivery failed: %v", err)
		writeError(w, http.StatusInternalServerError, domain.ErrorKind(err), "Failed to send recovery email")
	default:
		writeInternalError(w, err)
	}
}

// Reset handles POST /auth/reset.
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewSecret)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Email, code and new secret are required")
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, domain.ErrorKind(err), "Account not found")
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, domain.ErrorKind(err), "Invalid recovery code")
	default:
		writeInternalError(w, err)
	}
}

// ListAccounts handles GET /auth/accounts.
func (h *AuthHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListAccounts(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// TestEmail handles POST /auth/test-email, sending a probe message through
// the configured mailer.
func (h *AuthHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	err := h.service.SendTestEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Test email sent"})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), "Email is required")
	default:
		writeError(w, http.StatusInternalServerError, "notify_error", "Failed to send test email")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"kind":  kind,
	})
}

// writeInternalError logs the cause and returns an opaque 500; internal
// detail never reaches the client.
func writeInternalError(w http.ResponseWriter, err error) {
	log.Printf("Internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}
