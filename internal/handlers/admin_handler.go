package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/middleware"
	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/services"
)

// AdminActions is the operator surface behind /api/admin.
type AdminActions interface {
	BanUser(ctx context.Context, email, reason string) (*models.User, error)
	UnbanUser(ctx context.Context, email string) (*models.User, error)
	SuspendUser(ctx context.Context, email string) (*models.User, error)
	UnsuspendUser(ctx context.Context, email string) (*models.User, error)
	CreateWarning(ctx context.Context, email, message string) (*models.Warning, error)
	CreateLicenseKey(ctx context.Context, req *models.CreateLicenseKeyRequest) (*models.LicenseKey, error)
	SetMaintenance(ctx context.Context, enabled bool, message string) (models.MaintenanceConfig, error)
}

type RoleAssigner interface {
	SetAdminRole(ctx context.Context, uid string) error
	RemoveAdminRole(ctx context.Context, uid string) error
}

type TokenChecker interface {
	VerifyToken(ctx context.Context, credential string) services.TokenVerification
}

type AdminHandler struct {
	actions  AdminActions
	roles    RoleAssigner
	verifier TokenChecker
	timeout  time.Duration
}

func NewAdminHandler(actions AdminActions, roles RoleAssigner, verifier TokenChecker, timeout time.Duration) *AdminHandler {
	return &AdminHandler{actions: actions, roles: roles, verifier: verifier, timeout: timeout}
}

// VerifyAdmin reports whether the bearer token belongs to an admin. It never
// fails: an absent or bad token is simply not an admin.
func (h *AdminHandler) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	res := h.verifier.VerifyToken(ctx, r.Header.Get("Authorization"))
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(models.AdminVerification{
		IsAdmin: res.IsAdmin,
		UID:     res.UID,
		Email:   res.Email,
	}))
}

func (h *AdminHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, true)
}

func (h *AdminHandler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, false)
}

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request, admin bool) {
	uid := strings.TrimSpace(chi.URLParam(r, "uid"))
	if uid == "" {
		writeJSON(w, r, http.StatusBadRequest, models.NewCodedErrorResponse("INVALID_REQUEST", "User ID required"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	var err error
	if admin {
		err = h.roles.SetAdminRole(ctx, uid)
	} else {
		err = h.roles.RemoveAdminRole(ctx, uid)
	}
	if err != nil {
		writeServiceError(w, r, "ChangeAdminRole", err)
		return
	}

	log.Printf("[AdminRole] by=%s (%s) uid=%s admin=%t", middleware.GetUserID(r.Context()), middleware.GetUserEmail(r.Context()), uid, admin)
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{"uid": uid, "admin": admin}))
}

func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "BanUser", func(ctx context.Context, req models.UserActionRequest) (*models.User, error) {
		return h.actions.BanUser(ctx, req.Email, req.Reason)
	})
}

func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "UnbanUser", func(ctx context.Context, req models.UserActionRequest) (*models.User, error) {
		return h.actions.UnbanUser(ctx, req.Email)
	})
}

func (h *AdminHandler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "SuspendUser", func(ctx context.Context, req models.UserActionRequest) (*models.User, error) {
		return h.actions.SuspendUser(ctx, req.Email)
	})
}

func (h *AdminHandler) UnsuspendUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, "UnsuspendUser", func(ctx context.Context, req models.UserActionRequest) (*models.User, error) {
		return h.actions.UnsuspendUser(ctx, req.Email)
	})
}

func (h *AdminHandler) userAction(w http.ResponseWriter, r *http.Request, op string, do func(context.Context, models.UserActionRequest) (*models.User, error)) {
	var req models.UserActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := do(ctx, req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *AdminHandler) CreateWarning(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWarningRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	warning, err := h.actions.CreateWarning(ctx, req.Email, req.Message)
	if err != nil {
		writeServiceError(w, r, "CreateWarning", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, models.NewSuccessResponse(warning))
}

func (h *AdminHandler) CreateLicenseKey(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLicenseKeyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, err := h.actions.CreateLicenseKey(ctx, &req)
	if err != nil {
		writeServiceError(w, r, "CreateLicenseKey", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, models.NewSuccessResponse(models.LicenseKeyResponse{
		LicenseKey: *key,
		Formatted:  services.FormatLicenseKey(key.Key),
	}))
}

func (h *AdminHandler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req models.SetMaintenanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	cfg, err := h.actions.SetMaintenance(ctx, *req.Enabled, req.Message)
	if err != nil {
		writeServiceError(w, r, "SetMaintenance", err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(cfg))
}
