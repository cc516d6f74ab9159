// Package providers models identity assertions handed over by the external
// provider SDKs. The OAuth handshake itself happens outside the gateway;
// by the time an Assertion reaches us the provider has already
// authenticated the user.
package providers

import (
	"strings"

	"github.com/staywo/authgate/internal/common"
)

// Provider tags which external identity provider produced an assertion.
type Provider string

const (
	Google   Provider = "google"
	Facebook Provider = "facebook"
	Apple    Provider = "apple"
)

// Assertion is a provider-attested claim of a user's identity. Email is
// mandatory; Code carries Apple's authorization code, which Apple's flow
// requires before the account may be resolved.
type Assertion struct {
	Provider  Provider `json:"provider"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Code      string   `json:"code"`
}

// Validate rejects malformed assertions before any store access. Rejections
// are deliberately generic (common.ErrorForbidden) so provider-specific
// detail never leaks to the caller.
func (a *Assertion) Validate() error {
	switch a.Provider {
	case Google, Facebook:
	case Apple:
		if a.Code == "" {
			return common.ErrorForbidden
		}
	default:
		return common.ErrorForbidden
	}
	if a.Email == "" {
		return common.ErrorForbidden
	}
	return nil
}

// DisplayName derives a username for first-time external users from the
// profile names the provider supplied, falling back to the email local part.
func (a *Assertion) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name != "" {
		return name
	}
	if at := strings.Index(a.Email, "@"); at > 0 {
		return a.Email[:at]
	}
	return a.Email
}
