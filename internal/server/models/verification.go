package models

import "time"

// EmailVerification is a single-use code proving control of an email
// address. At most one pending record exists per email; the unique index in
// the store enforces it.
type EmailVerification struct {
	ID        int64
	Email     string
	Token     string
	CreatedAt time.Time
}
