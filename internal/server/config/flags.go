package config

import (
	"flag"
	"os"
	"time"

	"github.com/staywo/authgate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret key
//	-t int      session token validity, minutes
//	-e int      verification token validity, minutes
//	-m string   SMTP host
//	-p int      SMTP port
//	-u string   SMTP user
//	-w string   SMTP password
//	-f string   From address for outbound mail
//	-b string   public base URL used in email links
//	-r string   redirect URL after successful verification
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes and then converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-e", "-m", "-p", "-u", "-w", "-f", "-b", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	verificationTokenTTL := fs.Int("e", int(config.VerificationTokenTTL.Minutes()), "verification_token_ttl (in minutes)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "w", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.EmailFrom, "f", config.EmailFrom, "From address for outbound mail")
	fs.StringVar(&config.PublicBaseURL, "b", config.PublicBaseURL, "public base URL for email links")
	fs.StringVar(&config.VerifiedRedirectURL, "r", config.VerifiedRedirectURL, "redirect URL after verification")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
	config.VerificationTokenTTL = time.Duration(*verificationTokenTTL) * time.Minute
}
