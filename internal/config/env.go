package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: the vault password is prompted at runtime and stored in memory - use GetVaultPasswordBytes()
type Config struct {
	Port               int           `envconfig:"PORT" default:"5000"`
	PortAttempts       int           `envconfig:"PORT_ATTEMPTS" default:"10"`
	AdvertiseIP        string        `envconfig:"ADVERTISE_IP"`
	TLSCertFile        string        `envconfig:"TLS_CERT_FILE"`
	TLSKeyFile         string        `envconfig:"TLS_KEY_FILE"`
	VaultPath          string        `envconfig:"VAULT_PATH"`
	SubmitTimeout      time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"15s"`
	InsecureSkipVerify bool          `envconfig:"INSECURE_SKIP_VERIFY" default:"false"`
	TLSCAFile          string        `envconfig:"TLS_CA_FILE"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment     bool          `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load reads and validates configuration without touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values envconfig cannot express with tags
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PortAttempts < 1 {
		return fmt.Errorf("PORT_ATTEMPTS must be positive, got %d", c.PortAttempts)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.SubmitTimeout <= 0 {
		return errors.New("SUBMIT_TIMEOUT must be positive")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// TLSEnabled reports whether the receiver serves HTTPS
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Scheme returns the URL scheme the receiver is reachable on
func (c *Config) Scheme() string {
	if c.TLSEnabled() {
		return "https"
	}
	return "http"
}

var passwordBytes []byte

// PromptForPassword prompts the user for the vault password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the receiver begins handling requests.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter vault password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return SetPassword(raw)
}

// SetPassword stores a copy of raw as the vault password and wipes raw.
func SetPassword(raw []byte) error {
	defer clear(raw)
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	clear(passwordBytes)
	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
	return nil
}

// GetVaultPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetVaultPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
