package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/staywo/authgate/internal/flagx"
	"github.com/staywo/authgate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	VerificationTokenTTL         timex.Duration `json:"verification_token_ttl"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	SessionTokenOnRegister       bool           `json:"session_token_on_register"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	EmailFrom                    string         `json:"email_from"`
	PublicBaseURL                string         `json:"public_base_url"`
	VerifiedRedirectURL          string         `json:"verified_redirect_url"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	config.VerificationTokenTTL = time.Duration(c.VerificationTokenTTL.Duration)
	config.BcryptCost = c.BcryptCost
	config.SessionTokenOnRegister = c.SessionTokenOnRegister
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.EmailFrom = c.EmailFrom
	config.PublicBaseURL = c.PublicBaseURL
	config.VerifiedRedirectURL = c.VerifiedRedirectURL
}
