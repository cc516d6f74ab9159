package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPTransport delivers messages over plain SMTP with optional AUTH PLAIN.
type SMTPTransport struct {
	host     string
	port     int
	user     string
	password string
}

// NewSMTPTransport constructs a transport for the given SMTP endpoint.
// An empty user disables authentication.
func NewSMTPTransport(host string, port int, user, password string) *SMTPTransport {
	return &SMTPTransport{host: host, port: port, user: user, password: password}
}

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

// Send builds a multipart/alternative MIME message and hands it to the SMTP
// server. The generated Message-ID doubles as the delivery identifier.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.host)

	var auth smtp.Auth
	if t.user != "" {
		auth = smtp.PlainAuth("", t.user, t.password, t.host)
	}

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	if err := sendMail(addr, auth, envelopeAddress(msg.From), []string{msg.To}, buildMIME(messageID, msg)); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	return messageID, nil
}

// envelopeAddress strips an RFC 5322 display name, leaving the bare address
// required by the SMTP envelope.
func envelopeAddress(from string) string {
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if close := strings.LastIndex(from, ">"); close > open {
			return from[open+1 : close]
		}
	}
	return from
}

const boundary = "staywo-alt"

func buildMIME(messageID string, msg *Message) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
