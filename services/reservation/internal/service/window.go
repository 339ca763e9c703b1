package service

import (
	"fmt"
	"time"
)

// reservationWindow вычисляет [reserved_at, expires_at].
// reserved_at по умолчанию now, expires_at по умолчанию reserved_at + maxWindow.
func reservationWindow(now time.Time, reservedAt, expiresAt *time.Time, maxWindow time.Duration) (time.Time, time.Time, error) {
	reserved := now
	if reservedAt != nil {
		reserved = reservedAt.UTC()
	}

	expires := reserved.Add(maxWindow)
	if expiresAt != nil {
		expires = expiresAt.UTC()
	}

	if err := validateWindow(reserved, expires, maxWindow); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return reserved, expires, nil
}

func validateWindow(reserved, expires time.Time, maxWindow time.Duration) error {
	if !expires.After(reserved) {
		return &WindowError{Message: "expires_at must be after reserved_at"}
	}
	if expires.Sub(reserved) > maxWindow {
		return &WindowError{Message: fmt.Sprintf("reservation window cannot exceed %s", maxWindow)}
	}
	return nil
}
