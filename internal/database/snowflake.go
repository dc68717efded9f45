package database

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/gerhard-ee/snowcheck/internal/config"
	sf "github.com/snowflakedb/gosnowflake"
)

// SnowflakeDB holds one authenticated session to a Snowflake account.
type SnowflakeDB struct {
	db  *sql.DB
	cfg *config.Config
	key *rsa.PrivateKey
}

// NewSnowflake prepares a connector using key-pair (JWT) authentication.
// No password fallback is configured: if the key is not accepted the
// connection fails.
func NewSnowflake(cfg *config.Config, key *rsa.PrivateKey) (*SnowflakeDB, error) {
	if key == nil {
		return nil, errors.New("private key is required for key-pair authentication")
	}
	return &SnowflakeDB{cfg: cfg, key: key}, nil
}

// Connect opens and pings the session.
func (s *SnowflakeDB) Connect(ctx context.Context) error {
	dsn, err := sf.DSN(&sf.Config{
		Account:       s.cfg.Account,
		User:          s.cfg.User,
		Role:          s.cfg.Role,
		Warehouse:     s.cfg.Warehouse,
		Database:      s.cfg.Database,
		Authenticator: sf.AuthTypeJwt,
		PrivateKey:    s.key,
	})
	if err != nil {
		return fmt.Errorf("failed to build DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	s.db = db
	return nil
}

// DB returns the underlying database handle. Valid only after Connect.
func (s *SnowflakeDB) DB() *sql.DB {
	return s.db
}

// Close closes the session.
func (s *SnowflakeDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Category describes err for diagnostics: Snowflake errors carry their error
// code and SQLSTATE, anything else is reported by its Go type.
func Category(err error) string {
	var sfErr *sf.SnowflakeError
	if errors.As(err, &sfErr) {
		return fmt.Sprintf("SnowflakeError %d (SQLSTATE %s)", sfErr.Number, sfErr.SQLState)
	}
	return fmt.Sprintf("%T", err)
}

// PrintTroubleshooting writes the fixed checklist shown after a failed
// connection attempt.
func PrintTroubleshooting(w io.Writer) {
	fmt.Fprintln(w, "Troubleshooting tips:")
	fmt.Fprintln(w, "1. Verify SNOWFLAKE_ACCOUNT URL format")
	fmt.Fprintln(w, "2. Check SNOWFLAKE_USER exists and has proper permissions")
	fmt.Fprintln(w, "3. Ensure SNOWFLAKE_ROLE has necessary privileges")
	fmt.Fprintln(w, "4. Confirm private key is associated with the user in Snowflake")
	fmt.Fprintln(w, "5. Check if key needs a password (update PRIVATE_KEY_PASSWORD)")
}

// SetDriverLogLevel adjusts the gosnowflake driver logger. The driver is
// chatty at its default level; the checker keeps it at "error" unless
// verbose output is requested.
func SetDriverLogLevel(level string) error {
	return sf.GetLogger().SetLogLevel(level)
}
