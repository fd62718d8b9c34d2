package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// RoleManager grants and revokes the admin custom claim.
type RoleManager struct {
	provider IdentityProvider
}

func NewRoleManager(provider IdentityProvider) *RoleManager {
	return &RoleManager{provider: provider}
}

func (m *RoleManager) SetAdminRole(ctx context.Context, uid string) error {
	return m.setAdmin(ctx, uid, true)
}

func (m *RoleManager) RemoveAdminRole(ctx context.Context, uid string) error {
	return m.setAdmin(ctx, uid, false)
}

// setAdmin rewrites the admin claim and keeps every other custom claim.
func (m *RoleManager) setAdmin(ctx context.Context, uid string, admin bool) error {
	u, err := m.provider.GetUser(ctx, uid)
	if err != nil {
		log.Printf("[RoleManager] load uid=%s admin=%t err=%v", uid, admin, err)
		return fmt.Errorf("set admin role: %w", err)
	}

	claims := make(map[string]interface{}, len(u.CustomClaims)+1)
	for k, v := range u.CustomClaims {
		claims[k] = v
	}
	claims[AdminClaim] = admin

	if err := m.provider.SetCustomClaims(ctx, uid, claims); err != nil {
		log.Printf("[RoleManager] set claims uid=%s admin=%t err=%v", uid, admin, err)
		return fmt.Errorf("set admin role: %w", err)
	}
	log.Printf("[RoleManager] uid=%s admin=%t", uid, admin)
	return nil
}
