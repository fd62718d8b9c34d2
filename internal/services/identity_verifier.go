package services

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TokenVerification is the outcome of checking a bearer credential.
type TokenVerification struct {
	IsAdmin bool
	UID     string
	Email   string
}

// IdentityVerifier answers admin questions against the identity provider.
// It fails closed: errors never escape, they resolve to "not admin".
type IdentityVerifier struct {
	provider IdentityProvider
}

func NewIdentityVerifier(provider IdentityProvider) *IdentityVerifier {
	return &IdentityVerifier{provider: provider}
}

// VerifyToken validates credential ("Bearer <token>" or a bare token) and
// reads its admin claim. UID and Email are set whenever the token itself is
// valid, even for non-admins.
func (v *IdentityVerifier) VerifyToken(ctx context.Context, credential string) TokenVerification {
	token := bearerToken(credential)
	if token == "" {
		return TokenVerification{}
	}

	tok, err := v.provider.VerifyIDToken(ctx, token)
	if err != nil || tok == nil {
		log.Debugf("[IdentityVerifier] token rejected: %v", err)
		return TokenVerification{}
	}

	return TokenVerification{
		IsAdmin: hasAdminClaim(tok.Claims),
		UID:     tok.UID,
		Email:   tok.Email,
	}
}

// IsAdminUser reads the admin claim from the provider's current record for uid.
func (v *IdentityVerifier) IsAdminUser(ctx context.Context, uid string) bool {
	if strings.TrimSpace(uid) == "" {
		return false
	}
	u, err := v.provider.GetUser(ctx, uid)
	if err != nil || u == nil {
		log.Printf("[IdentityVerifier] admin lookup failed uid=%s err=%v", uid, err)
		return false
	}
	return hasAdminClaim(u.CustomClaims)
}

func bearerToken(credential string) string {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ""
	}
	parts := strings.Fields(credential)
	switch len(parts) {
	case 1:
		if strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return parts[0]
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return parts[1]
	default:
		return ""
	}
}
