package services

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseIdentity adapts the Firebase Admin auth client.
type FirebaseIdentity struct {
	client *fbauth.Client
}

func NewFirebaseIdentity(client *fbauth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

func (f *FirebaseIdentity) VerifyIDToken(ctx context.Context, idToken string) (*IdentityToken, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &IdentityToken{
		UID:    tok.UID,
		Email:  email,
		Claims: tok.Claims,
	}, nil
}

func (f *FirebaseIdentity) GetUser(ctx context.Context, uid string) (*IdentityUser, error) {
	u, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, ErrIdentityUserNotFound
		}
		return nil, err
	}
	out := &IdentityUser{UID: uid, CustomClaims: u.CustomClaims}
	if u.UserInfo != nil {
		out.UID = u.UserInfo.UID
		out.Email = u.UserInfo.Email
	}
	return out, nil
}

func (f *FirebaseIdentity) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if err := f.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		if fbauth.IsUserNotFound(err) {
			return ErrIdentityUserNotFound
		}
		return err
	}
	return nil
}
