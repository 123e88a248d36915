package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/api/dto"
	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/tenancy"
)

type AuthHandler struct {
	authService  *auth.Service
	resets       *auth.ResetService
	tenants      *tenancy.Resolver
	logger       *slog.Logger
	secureCookie bool
}

func NewAuthHandler(authService *auth.Service, resets *auth.ResetService, tenants *tenancy.Resolver, logger *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resets:       resets,
		tenants:      tenants,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// tenantID returns the id of the tenant the request resolves to, or
// uuid.Nil when the host maps to none.
func (h *AuthHandler) tenantID(r *http.Request) (uuid.UUID, error) {
	tenant, err := h.tenants.Current(r)
	if err != nil {
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return tenant.ID, nil
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, err := h.tenantID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TenantID: tenantID,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.setCookie(w, middleware.SystemCookie, resp.Token, 86400)
	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: resp.Token, User: resp.User})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, middleware.SystemCookie, "", -1)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, err := h.tenantID(r)
	if err != nil {
		h.logger.Warn("tenant lookup failed during password reset", "error", err)
	}
	if err := h.resets.RequestReset(r.Context(), req.Email, tenantID); err != nil {
		h.logger.Error("password reset request failed", "error", err)
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{
		Message: "If an account exists for that email, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.resets.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

type meResponse struct {
	Principal *auth.SystemPrincipal `json:"principal"`
	User      interface{}           `json:"user"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetSystemPrincipal(r.Context())
	user, err := h.authService.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Principal: p, User: user})
}

func (h *AuthHandler) AttendantLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, err := h.tenantID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	resp, err := h.authService.LoginAttendant(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TenantID: tenantID,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.setCookie(w, middleware.AttendantCookie, resp.Token, 8*3600)
	writeJSON(w, http.StatusOK, dto.AttendantAuthResponse{Token: resp.Token, Attendant: resp.Attendant})
}

func (h *AuthHandler) AttendantLogout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, middleware.AttendantCookie, "", -1)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

type attendantMeResponse struct {
	Principal *auth.AttendantPrincipal `json:"principal"`
	Attendant interface{}              `json:"attendant"`
}

func (h *AuthHandler) AttendantMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetAttendantPrincipal(r.Context())
	attendant, err := h.authService.GetAttendantByID(r.Context(), p.AttendantID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attendantMeResponse{Principal: p, Attendant: attendant})
}
