package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/metrics"
	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/services"
)

// LicenseFlow is the orchestrator surface behind /api/license.
type LicenseFlow interface {
	Verify(ctx context.Context, email, deviceID string) (*models.VerificationResponse, error)
	Activate(ctx context.Context, email, licenseKey, deviceID string) (*models.VerificationResponse, error)
	IncrementMessageCount(ctx context.Context, email string) (*models.MessageCounter, error)
	AcknowledgeWarning(ctx context.Context, email, warningID string) error
}

type LicenseHandler struct {
	flow    LicenseFlow
	metrics *metrics.Recorder
	timeout time.Duration
}

func NewLicenseHandler(flow LicenseFlow, rec *metrics.Recorder, timeout time.Duration) *LicenseHandler {
	return &LicenseHandler{flow: flow, metrics: rec, timeout: timeout}
}

func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyLicenseRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Verification("bad_request")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.flow.Verify(ctx, req.Email, req.DeviceID)
	if err != nil {
		h.metrics.Verification(outcomeOf(err))
		writeServiceError(w, r, "VerifyLicense", err)
		return
	}

	outcome := "valid"
	if !resp.Valid {
		outcome = resp.Reason
	}
	h.metrics.Verification(outcome)
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(resp))
}

func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req models.ActivateLicenseRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Activation("bad_request")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.flow.Activate(ctx, req.Email, req.LicenseKey, req.DeviceID)
	if err != nil {
		log.Printf("[ActivateLicense] key=%s err=%v", services.MaskLicenseKey(req.LicenseKey), err)
		h.metrics.Activation(outcomeOf(err))
		writeServiceError(w, r, "ActivateLicense", err)
		return
	}

	h.metrics.Activation("activated")
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(resp))
}

func (h *LicenseHandler) IncrementMessageCount(w http.ResponseWriter, r *http.Request) {
	var req models.IncrementMessageCountRequest
	if !decodeAndValidate(w, r, &req) {
		h.metrics.Increment("bad_request")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	counter, err := h.flow.IncrementMessageCount(ctx, req.Email)
	if err != nil {
		h.metrics.Increment(outcomeOf(err))
		writeServiceError(w, r, "IncrementMessageCount", err)
		return
	}

	h.metrics.Increment("ok")
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(counter))
}

func (h *LicenseHandler) AcknowledgeWarning(w http.ResponseWriter, r *http.Request) {
	warningID := chi.URLParam(r, "warningId")
	if warningID == "" {
		writeJSON(w, r, http.StatusBadRequest, models.NewCodedErrorResponse("INVALID_REQUEST", "Warning ID required"))
		return
	}

	var req models.AcknowledgeWarningRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.flow.AcknowledgeWarning(ctx, req.Email, warningID); err != nil {
		writeServiceError(w, r, "AcknowledgeWarning", err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.NewSuccessResponse(map[string]bool{"acknowledged": true}))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, services.ErrLicenseNotFound):
		return "license_not_found"
	case errors.Is(err, services.ErrLicenseKeyNotFound), errors.Is(err, services.ErrLicenseKeyInactive):
		return "key_invalid"
	case errors.Is(err, services.ErrLicenseKeyInUse):
		return "key_in_use"
	case errors.Is(err, services.ErrVersionConflict):
		return "conflict"
	default:
		return "error"
	}
}
