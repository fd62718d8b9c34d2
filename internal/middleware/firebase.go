package middleware

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type FirebaseAuthConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// NewFirebaseApp initializes the Admin SDK. Without inline credentials the
// SDK falls back to Application Default Credentials.
func NewFirebaseApp(ctx context.Context, cfg FirebaseAuthConfig) (*firebase.App, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firebase project id is required")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	return firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
}

func NewFirebaseAuthClient(ctx context.Context, app *firebase.App) (*fbauth.Client, error) {
	return app.Auth(ctx)
}
