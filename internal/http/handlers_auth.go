package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
	"github.com/theervu-kaanal/grievance-api/internal/service"
)

// AuthHandlers serves the auth endpoints: role-scoped logins, petitioner
// registration, and the token refresh/verify pair.
type AuthHandlers struct {
	Svc    *service.AuthService
	Logger *slog.Logger
}

// loginRequest is the wire shape shared by the three login endpoints.
// Department is read by the official endpoint; AdminID by the admin one.
// EmployeeID may accompany an official login; the record is keyed by
// email, so it is accepted but not matched against.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department,omitempty"`
	AdminID    string `json:"adminId,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
}

// sessionResponse is the success body for login and registration.
type sessionResponse struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refreshToken,omitempty"`
	User         domainauth.Principal `json:"user"`
}

// PetitionerLogin handles POST /api/auth/petitioner/login.
func (h *AuthHandlers) PetitionerLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domainauth.RolePetitioner)
}

// OfficialLogin handles POST /api/auth/official/login.
func (h *AuthHandlers) OfficialLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domainauth.RoleOfficial)
}

// AdminLogin handles POST /api/auth/admin/login.
func (h *AuthHandlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domainauth.RoleAdmin)
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request, role domainauth.Role) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Login(r.Context(), service.LoginInput{
		Role:       role,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		h.Logger.WarnContext(r.Context(), "login rejected",
			"role", string(role), "error", err)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Token:        res.Token,
		RefreshToken: res.RefreshToken,
		User:         res.Principal,
	})
}

// registerRequest is the wire shape for petitioner self-registration.
type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Register handles POST /api/auth/petitioner/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.RegisterPetitioner(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		h.Logger.WarnContext(r.Context(), "registration failed", "error", err)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, sessionResponse{
		Token:        res.Token,
		RefreshToken: res.RefreshToken,
		User:         res.Principal,
	})
}

// Refresh handles POST /api/auth/refresh. The expiring token rides the
// Authorization header; a fresh token with a full validity window comes
// back.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenString, _ := BearerToken(r)

	res, err := h.Svc.Refresh(r.Context(), tokenString)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "refresh rejected", "error", err)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"token": res.Token,
		"user":  res.Principal,
	})
}

// Verify handles GET /api/auth/verify behind the local-auth middleware,
// echoing the principal the session token resolved to.
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    principal,
	})
}

// Me handles GET /api/auth/me behind the provider-auth middleware.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": principal})
}
