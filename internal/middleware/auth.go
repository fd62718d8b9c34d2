package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/models"
	"github.com/licensegate/backend/internal/services"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
)

// TokenVerifier is the identity surface the auth middleware needs.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, credential string) services.TokenVerification
	IsAdminUser(ctx context.Context, uid string) bool
}

// RequireAdmin admits only callers whose token carries the admin claim and
// whose current provider record still does. Revocations take effect before
// the token expires.
func RequireAdmin(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := verifier.VerifyToken(r.Context(), r.Header.Get("Authorization"))
			if res.UID == "" {
				writeJSON(w, r, http.StatusUnauthorized, models.NewCodedErrorResponse("UNAUTHORIZED", "Invalid or missing ID token"))
				return
			}
			if !res.IsAdmin || !verifier.IsAdminUser(r.Context(), res.UID) {
				log.Printf("[RequireAdmin] denied uid=%s path=%s", res.UID, r.URL.Path)
				writeJSON(w, r, http.StatusForbidden, models.NewCodedErrorResponse("FORBIDDEN", "Admin privileges required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), res)))
		})
	}
}

func withIdentity(ctx context.Context, res services.TokenVerification) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, res.UID)
	return context.WithValue(ctx, UserEmailKey, res.Email)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, data)
}
