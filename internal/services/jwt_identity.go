package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTIdentity is a self-contained HS256 identity provider for local runs and
// tests. Accounts and their custom claims live in memory.
type JWTIdentity struct {
	secret []byte

	mu    sync.RWMutex
	users map[string]*IdentityUser
}

func NewJWTIdentity(secret string) *JWTIdentity {
	return &JWTIdentity{
		secret: []byte(secret),
		users:  make(map[string]*IdentityUser),
	}
}

// RegisterUser adds or replaces an account.
func (j *JWTIdentity) RegisterUser(uid, email string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.users[uid] = &IdentityUser{UID: uid, Email: email, CustomClaims: map[string]interface{}{}}
}

// Issue signs a token for uid carrying the account's current custom claims.
func (j *JWTIdentity) Issue(uid string, ttl time.Duration) (string, error) {
	j.mu.RLock()
	u, ok := j.users[uid]
	var claims jwt.MapClaims
	if ok {
		claims = jwt.MapClaims{}
		for k, v := range u.CustomClaims {
			claims[k] = v
		}
		claims["user_id"] = u.UID
		claims["email"] = u.Email
	}
	j.mu.RUnlock()
	if !ok {
		return "", ErrIdentityUserNotFound
	}

	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTIdentity) VerifyIDToken(ctx context.Context, idToken string) (*IdentityToken, error) {
	token, err := jwt.Parse(idToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, ok := claims["user_id"].(string)
	if !ok || uid == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return &IdentityToken{UID: uid, Email: email, Claims: map[string]interface{}(claims)}, nil
}

func (j *JWTIdentity) GetUser(ctx context.Context, uid string) (*IdentityUser, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	u, ok := j.users[uid]
	if !ok {
		return nil, ErrIdentityUserNotFound
	}
	claims := make(map[string]interface{}, len(u.CustomClaims))
	for k, v := range u.CustomClaims {
		claims[k] = v
	}
	return &IdentityUser{UID: u.UID, Email: u.Email, CustomClaims: claims}, nil
}

func (j *JWTIdentity) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	u, ok := j.users[uid]
	if !ok {
		return ErrIdentityUserNotFound
	}
	next := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		next[k] = v
	}
	u.CustomClaims = next
	return nil
}
