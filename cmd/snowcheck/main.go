package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gerhard-ee/snowcheck/internal/check"
	"github.com/gerhard-ee/snowcheck/internal/config"
	"github.com/gerhard-ee/snowcheck/internal/database"
	"github.com/gerhard-ee/snowcheck/internal/keypair"
)

var (
	// Connection flags; any value set here overrides the environment.
	sfAccount   = flag.String("account", "", "Snowflake account identifier")
	sfUser      = flag.String("user", "", "Snowflake username")
	sfRole      = flag.String("role", "", "Snowflake role name")
	sfWarehouse = flag.String("warehouse", "", "Snowflake warehouse name")
	sfDatabase  = flag.String("database", "", "Database name (default SNOWFLAKE)")

	// Key flags
	keyPath       = flag.String("key", "", "Path to the private key file (default rsa_key.p8)")
	keyPassphrase = flag.String("key-passphrase", "", "Passphrase for an encrypted private key")

	// Behavior flags
	envFile = flag.String("env-file", config.DefaultEnvFile, "Path to the .env file")
	noInput = flag.Bool("no-input", false, "Never prompt; fail if required configuration is missing")
	verbose = flag.Bool("verbose", false, "Enable verbose driver logging")

	// Help flag
	showHelp = flag.Bool("help", false, "Show detailed help information")
)

func initFlags() {
	flag.Parse()

	if *showHelp {
		printHelp()
		os.Exit(0)
	}
}

func printHelp() {
	// ANSI color codes
	const (
		headerColor  = "\033[1;36m" // Cyan
		sectionColor = "\033[1;33m" // Yellow
		flagColor    = "\033[1;32m" // Green
		resetColor   = "\033[0m"    // Reset
	)

	// Read help text from file
	helpText, err := os.ReadFile("cmd/snowcheck/help.txt")
	if err != nil {
		// Fallback to basic help if file is not found
		fmt.Printf("%ssnowcheck - verify Snowflake key-pair authentication and monitoring access%s\n", headerColor, resetColor)
		fmt.Printf("\n%sUSAGE:%s\n", sectionColor, resetColor)
		fmt.Printf("  snowcheck [OPTIONS]\n\n")
		fmt.Printf("%sCONFIGURATION:%s\n", sectionColor, resetColor)
		fmt.Printf("  %s--account%s <ACCOUNT>       Snowflake account identifier\n", flagColor, resetColor)
		fmt.Printf("  %s--user%s <USER>             Snowflake username\n", flagColor, resetColor)
		fmt.Printf("  %s--role%s <ROLE>             Snowflake role name\n", flagColor, resetColor)
		fmt.Printf("  %s--warehouse%s <WAREHOUSE>   Snowflake warehouse name\n", flagColor, resetColor)
		fmt.Printf("  %s--key%s <FILE>              Private key file (DER or PEM)\n", flagColor, resetColor)
		fmt.Printf("\nValues can also come from the environment or a .env file.\n")
		return
	}

	// Print help text with colors
	fmt.Printf("%s%s%s\n", headerColor, string(helpText), resetColor)
}

func main() {
	os.Exit(run())
}

func run() int {
	initFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("SNOWFLAKE PRIVATE LINK KEY AUTHENTICATION TEST")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Test started at: %s\n", time.Now().Format(time.RFC3339))
	defer func() {
		fmt.Printf("\nTest completed at: %s\n", time.Now().Format(time.RFC3339))
	}()

	level := "error"
	if *verbose {
		level = "debug"
	}
	if err := database.SetDriverLogLevel(level); err != nil {
		log.Printf("Failed to set driver log level: %v", err)
	}

	// Stage 1: configuration
	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("Failed to load env file: %v", err)
		return 1
	}
	cfg := config.FromEnv()
	applyFlagOverrides(cfg)

	if !*noInput {
		if err := cfg.Resolve(os.Stdin, os.Stdout); err != nil {
			log.Printf("Failed to resolve configuration: %v", err)
			return 1
		}
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		fmt.Printf("\nMissing configuration: %s\n", strings.Join(missing, ", "))
		fmt.Println("Provide values via flags, environment variables, or the .env file.")
		return 1
	}

	// Stage 2: private key
	key, err := keypair.Load(cfg.KeyPath, cfg.KeyPassphrase)
	if err != nil {
		reportKeyError(err, cfg.KeyPath)
		fmt.Println("\nCannot proceed without valid private key")
		return 1
	}
	fmt.Println("Private key loaded successfully")

	// Stage 3: connection
	fmt.Println("\nTesting connection to Snowflake...")
	fmt.Printf("Account: %s\n", cfg.Account)
	fmt.Printf("User: %s\n", cfg.User)
	fmt.Printf("Role: %s\n", cfg.Role)
	fmt.Printf("Warehouse: %s\n", cfg.Warehouse)

	db, err := database.NewSnowflake(cfg, key)
	if err != nil {
		log.Printf("Failed to create connector: %v", err)
		return 1
	}
	if err := db.Connect(ctx); err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Printf("Error type: %s\n", database.Category(err))
		fmt.Println()
		database.PrintTroubleshooting(os.Stdout)
		fmt.Println("\nCannot proceed without valid connection")
		return 1
	}
	defer db.Close()
	fmt.Println("Connection established successfully")

	// Stage 4: queries
	runner := check.NewRunner(db.DB(), os.Stdout)
	if err := runner.Identity(ctx); err != nil {
		fmt.Printf("%v\n", err)
		fmt.Println("\nCannot proceed without basic query access")
		return 1
	}

	results := check.Results{
		ConfigOK:       true,
		KeyOK:          true,
		ConnectOK:      true,
		BasicOK:        true,
		MonitoringOK:   runner.MonitoringAccess(ctx),
		RequirementsOK: runner.Requirements(ctx),
	}

	results.Summarize(os.Stdout, cfg)
	return results.ExitCode()
}

func applyFlagOverrides(cfg *config.Config) {
	if *sfAccount != "" {
		cfg.Account = *sfAccount
	}
	if *sfUser != "" {
		cfg.User = *sfUser
	}
	if *sfRole != "" {
		cfg.Role = *sfRole
	}
	if *sfWarehouse != "" {
		cfg.Warehouse = *sfWarehouse
	}
	if *sfDatabase != "" {
		cfg.Database = *sfDatabase
	}
	if *keyPath != "" {
		cfg.KeyPath = *keyPath
	}
	if *keyPassphrase != "" {
		cfg.KeyPassphrase = *keyPassphrase
	}
}

func reportKeyError(err error, path string) {
	switch {
	case errors.Is(err, keypair.ErrNotFound):
		fmt.Printf("Key file not found: %s\n", path)
		fmt.Println("Make sure the key file path is correct (default rsa_key.p8)")
	case errors.Is(err, keypair.ErrPassphraseRequired):
		fmt.Println("Key requires a passphrase but none was provided")
		fmt.Println("Set PRIVATE_KEY_PASSWORD or use -key-passphrase")
	case errors.Is(err, keypair.ErrWrongPassphrase):
		fmt.Printf("Failed to decrypt private key: %v\n", err)
		fmt.Println("Check PRIVATE_KEY_PASSWORD for the correct passphrase")
	case errors.Is(err, keypair.ErrInvalidFormat):
		fmt.Printf("Invalid key format: %v\n", err)
	default:
		fmt.Printf("Error loading key: %v\n", err)
	}
}
