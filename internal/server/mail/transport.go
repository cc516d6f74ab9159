// Package mail composes and sends the gateway's transactional email:
// address verification and password reset. Actual delivery is delegated to
// a Transport; the in-tree implementation speaks SMTP.
package mail

import "context"

// Message is the payload handed to a Transport.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a composed message and returns a delivery identifier.
type Transport interface {
	Send(ctx context.Context, msg *Message) (string, error)
}
