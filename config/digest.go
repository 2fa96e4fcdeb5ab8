package config

import "strings"

// DigestConfig contains email digest configuration.
type DigestConfig struct {
	// SMTPHost and SMTPPort locate the outbound mail server.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`

	// Username and Password authenticate against the SMTP server.
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`

	// Sender is the From address; defaults to Username when empty.
	Sender string `env:"SENDER"`

	// Recipient receives the job digest.
	Recipient string `env:"RECIPIENT"`

	// TopN is the number of jobs included per digest.
	TopN int `env:"TOP_N" envDefault:"7"`

	// OutputDir is where a local copy of each rendered digest is saved.
	OutputDir string `env:"OUTPUT_DIR" envDefault:"emails"`
}

// Sanitize applies guardrails to digest configuration values.
func (d *DigestConfig) Sanitize() {
	d.Sender = strings.TrimSpace(d.Sender)
	if d.Sender == "" {
		d.Sender = d.Username
	}
	if d.TopN < 1 {
		d.TopN = 7
	}
	if d.OutputDir == "" {
		d.OutputDir = "emails"
	}
}

// Enabled returns true when the digest can actually be delivered.
func (d *DigestConfig) Enabled() bool {
	return d.SMTPHost != "" && d.Recipient != ""
}
