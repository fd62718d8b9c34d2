package services

import "context"

// AdminClaim is the custom claim that grants access to the admin routes.
const AdminClaim = "admin"

// IdentityToken is a verified ID token.
type IdentityToken struct {
	UID    string
	Email  string
	Claims map[string]interface{}
}

// IdentityUser is the provider's record for one account.
type IdentityUser struct {
	UID          string
	Email        string
	CustomClaims map[string]interface{}
}

// IdentityProvider is the external identity service (Firebase Auth in
// production). GetUser returns ErrIdentityUserNotFound for unknown UIDs and
// VerifyIDToken wraps ErrInvalidToken on rejection.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*IdentityToken, error)
	GetUser(ctx context.Context, uid string) (*IdentityUser, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error
}

// hasAdminClaim reports whether claims carry admin == true.
func hasAdminClaim(claims map[string]interface{}) bool {
	if claims == nil {
		return false
	}
	v, ok := claims[AdminClaim].(bool)
	return ok && v
}
