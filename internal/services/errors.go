package services

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrLicenseNotFound    = errors.New("license not found")
	ErrLicenseKeyNotFound = errors.New("license key not found")
	ErrLicenseKeyInactive = errors.New("license key is inactive")
	ErrLicenseKeyInUse    = errors.New("license key already bound to another account")
	ErrVersionConflict    = errors.New("license record was modified concurrently")
	ErrWarningNotFound    = errors.New("warning not found")

	ErrIdentityUserNotFound = errors.New("identity user not found")
	ErrInvalidToken         = errors.New("invalid identity token")
)
