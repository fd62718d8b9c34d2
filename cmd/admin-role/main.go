// Command admin-role grants or revokes the admin custom claim on a Firebase
// account. It bootstraps the first operator, who can then use the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/config"
	appMiddleware "github.com/licensegate/backend/internal/middleware"
	"github.com/licensegate/backend/internal/services"
)

func main() {
	uid := flag.String("uid", "", "Firebase UID of the account")
	revoke := flag.Bool("revoke", false, "remove the admin claim instead of setting it")
	check := flag.Bool("check", false, "only report whether the account is an admin")
	flag.Parse()

	if *uid == "" {
		fmt.Fprintln(os.Stderr, "usage: admin-role -uid <firebase-uid> [-revoke | -check]")
		os.Exit(2)
	}

	if err := config.SetupLogging(config.LogConfig{Level: getEnv("LOG_LEVEL", "info"), Format: "text"}); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := appMiddleware.NewFirebaseApp(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		CredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
	})
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, app)
	if err != nil {
		log.Fatalf("firebase auth: %v", err)
	}
	identity := services.NewFirebaseIdentity(authClient)

	if *check {
		isAdmin := services.NewIdentityVerifier(identity).IsAdminUser(ctx, *uid)
		fmt.Printf("uid=%s admin=%t\n", *uid, isAdmin)
		return
	}

	roles := services.NewRoleManager(identity)
	if *revoke {
		err = roles.RemoveAdminRole(ctx, *uid)
	} else {
		err = roles.SetAdminRole(ctx, *uid)
	}
	if err != nil {
		log.Fatalf("update role: %v", err)
	}
	fmt.Printf("uid=%s admin=%t\n", *uid, !*revoke)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
