package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/services"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxBodyBytes          = 64 << 10
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultRequestTimeout
	}
	return context.WithTimeout(parent, d)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, r, http.StatusBadRequest, models.NewCodedErrorResponse("INVALID_JSON", "Invalid request body"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, r, http.StatusBadRequest, models.NewCodedErrorResponse("INVALID_REQUEST", "Invalid request"))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		writeJSON(w, r, http.StatusBadRequest, models.NewValidationErrorResponse(fields))
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must be an RFC3339 timestamp"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// writeServiceError maps service sentinels to HTTP statuses. Anything
// unrecognized is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		writeJSON(w, r, http.StatusNotFound, models.NewCodedErrorResponse("USER_NOT_FOUND", "User not found"))
	case errors.Is(err, services.ErrLicenseNotFound):
		writeJSON(w, r, http.StatusNotFound, models.NewCodedErrorResponse("LICENSE_NOT_FOUND", "License not found"))
	case errors.Is(err, services.ErrLicenseKeyNotFound), errors.Is(err, services.ErrLicenseKeyInactive):
		writeJSON(w, r, http.StatusNotFound, models.NewCodedErrorResponse("LICENSE_KEY_INVALID", "License key not found or inactive"))
	case errors.Is(err, services.ErrLicenseKeyInUse):
		writeJSON(w, r, http.StatusForbidden, models.NewCodedErrorResponse("LICENSE_KEY_IN_USE", "License key is already used by another account"))
	case errors.Is(err, services.ErrWarningNotFound):
		writeJSON(w, r, http.StatusNotFound, models.NewCodedErrorResponse("WARNING_NOT_FOUND", "Warning not found"))
	case errors.Is(err, services.ErrIdentityUserNotFound):
		writeJSON(w, r, http.StatusNotFound, models.NewCodedErrorResponse("IDENTITY_NOT_FOUND", "Identity user not found"))
	case errors.Is(err, services.ErrVersionConflict):
		writeJSON(w, r, http.StatusConflict, models.NewCodedErrorResponse("CONFLICT", "License was modified concurrently, retry"))
	default:
		log.Printf("[%s] error=%v", op, err)
		writeJSON(w, r, http.StatusInternalServerError, models.NewCodedErrorResponse("INTERNAL", "Internal server error"))
	}
}
