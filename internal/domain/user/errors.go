package user

import "errors"

var (
	ErrNotFound              = errors.New("user not found")
	ErrConflict              = errors.New("user already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotConfigured         = errors.New("nickname is not configured")
	ErrNoNotificationChannel = errors.New("no notification channel configured")
)

// IsValidation reports whether err is caused by bad caller input rather than a system fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrNoNotificationChannel)
}
