package config

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultDatabase = "SNOWFLAKE"
	DefaultKeyPath  = "rsa_key.p8"
	DefaultEnvFile  = ".env"
)

// Environment variable names consumed by FromEnv.
const (
	EnvAccount       = "SNOWFLAKE_ACCOUNT"
	EnvUser          = "SNOWFLAKE_USER"
	EnvRole          = "SNOWFLAKE_ROLE"
	EnvWarehouse     = "SNOWFLAKE_WAREHOUSE"
	EnvDatabase      = "SNOWFLAKE_DATABASE"
	EnvKeyPath       = "PRIVATE_KEY_PATH"
	EnvKeyPassphrase = "PRIVATE_KEY_PASSWORD"
)

// Config represents the Snowflake connection configuration
type Config struct {
	Account       string
	User          string
	Role          string
	Warehouse     string
	Database      string
	KeyPath       string
	KeyPassphrase string
}

// LoadEnvFile loads KEY=VALUE pairs from the given file into the process
// environment, overwriting variables that are already set. A missing file is
// not an error; the step is skipped with a log line.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("No %s file found, using environment or interactive input", path)
		return nil
	}
	log.Printf("Loading environment variables from %s", path)
	// Overload, not Load: values in the file take precedence over the real
	// environment, matching the documented variable precedence.
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from environment variables, applying defaults for
// the database name and key path.
func FromEnv() *Config {
	cfg := &Config{
		Account:       os.Getenv(EnvAccount),
		User:          os.Getenv(EnvUser),
		Role:          os.Getenv(EnvRole),
		Warehouse:     os.Getenv(EnvWarehouse),
		Database:      os.Getenv(EnvDatabase),
		KeyPath:       os.Getenv(EnvKeyPath),
		KeyPassphrase: os.Getenv(EnvKeyPassphrase),
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.KeyPath == "" {
		cfg.KeyPath = DefaultKeyPath
	}
	return cfg
}

// Complete reports whether all four required connection fields are set.
func (c *Config) Complete() bool {
	return c.Account != "" && c.User != "" && c.Role != "" && c.Warehouse != ""
}

// Resolve fills missing required fields by prompting on out and reading
// answers from in. Blank input keeps the current value. When the
// configuration is already complete no prompting happens.
func (c *Config) Resolve(in io.Reader, out io.Writer) error {
	if c.Complete() {
		fmt.Fprintln(out, "Configuration loaded from environment variables:")
		c.print(out)
		return nil
	}

	fmt.Fprintln(out, "Please provide your Snowflake connection details:")
	if c.Account != "" || c.User != "" || c.Role != "" || c.Warehouse != "" {
		fmt.Fprintln(out, "(some values loaded from environment)")
	}
	fmt.Fprintln(out, "(press Enter to keep the existing value)")

	scanner := bufio.NewScanner(in)
	prompts := []struct {
		label string
		field *string
	}{
		{"Account URL (e.g., abc123.snowflakecomputing.com)", &c.Account},
		{"Username", &c.User},
		{"Role (e.g., ACCOUNTADMIN)", &c.Role},
		{"Warehouse (e.g., COMPUTE_WH)", &c.Warehouse},
	}
	for _, p := range prompts {
		fmt.Fprintf(out, "%s: ", p.label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			break
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			*p.field = v
		}
	}

	fmt.Fprintln(out, "Configuration set:")
	c.print(out)
	return nil
}

// Validate returns the names of required fields that are empty or still hold
// an obvious placeholder value.
func (c *Config) Validate() []string {
	var missing []string
	checks := []struct {
		name  string
		value string
	}{
		{"ACCOUNT", c.Account},
		{"USER", c.User},
		{"ROLE", c.Role},
		{"WAREHOUSE", c.Warehouse},
	}
	for _, ch := range checks {
		if ch.value == "" || isPlaceholder(ch.value) {
			missing = append(missing, ch.name)
		}
	}
	return missing
}

func isPlaceholder(v string) bool {
	v = strings.ToLower(v)
	return strings.Contains(v, "your-actual") || strings.Contains(v, "your_actual")
}

func (c *Config) print(out io.Writer) {
	fmt.Fprintf(out, "   Account: %s\n", c.Account)
	fmt.Fprintf(out, "   User: %s\n", c.User)
	fmt.Fprintf(out, "   Role: %s\n", c.Role)
	fmt.Fprintf(out, "   Warehouse: %s\n", c.Warehouse)
}
