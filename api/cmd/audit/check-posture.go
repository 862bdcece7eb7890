package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"stockroom/api/internal/config"
	"stockroom/api/internal/infrastructure/crypto"
)

func main() {
	fmt.Println("🔍 Stockroom: Running Security Posture Audit...")

	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  Warning: No .env file found, checking system env vars...")
	}

	cfg, err := config.Parse()
	if err != nil {
		fmt.Printf("❌ FAIL: configuration does not load: %v\n", err)
		fmt.Println("🚨 VERDICT: SECURITY POSTURE FAILED.")
		os.Exit(1)
	}

	hasErrors := false

	// --- Audit Point 1: Sealed channel passphrase ---
	switch {
	case cfg.ChannelPassphrase == crypto.DefaultPassphrase:
		// Clients ship with the same default, so this is a notice and not a failure
		fmt.Println("⚠️  NOTICE: CHANNEL_PASSPHRASE is the built-in default. Payloads are obfuscated, not secret.")
	case len(cfg.ChannelPassphrase) != crypto.KeySize:
		fmt.Printf("✅ PASS: CHANNEL_PASSPHRASE is custom (%d chars, stretched with HKDF).\n", len(cfg.ChannelPassphrase))
	default:
		fmt.Println("✅ PASS: CHANNEL_PASSPHRASE is a custom 32-byte key.")
	}

	// --- Audit Point 2: CORS ---
	if slices.Contains(cfg.AllowedOrigins, "*") {
		fmt.Println("❌ FAIL: CORS_ALLOWED_ORIGINS must not contain a wildcard.")
		hasErrors = true
	} else {
		fmt.Printf("✅ PASS: CORS restricted to %s.\n", strings.Join(cfg.AllowedOrigins, ", "))
	}

	// --- Audit Point 3: Database Credentials ---
	switch cfg.DBDriver {
	case "postgres":
		if strings.Contains(cfg.DatabaseURL, "dev_password") {
			fmt.Println("❌ FAIL: DATABASE_URL is using default development credentials.")
			hasErrors = true
		} else {
			fmt.Println("✅ PASS: Database URL does not use default credentials.")
		}
	case "sqlite":
		if cfg.IsProduction() {
			fmt.Println("⚠️  NOTICE: sqlite in production serialises all writes through one connection.")
		}
	}

	// --- Audit Point 4: Gateway limits ---
	if cfg.MaxBodyBytes > 16<<20 {
		fmt.Printf("❌ FAIL: MAX_BODY_BYTES (%d) exceeds 16MiB.\n", cfg.MaxBodyBytes)
		hasErrors = true
	} else {
		fmt.Println("✅ PASS: Request body limit is bounded.")
	}

	fmt.Println("--------------------------------------------------")
	if hasErrors {
		fmt.Println("🚨 VERDICT: SECURITY POSTURE FAILED.")
		fmt.Println("Fix the errors above before attempting deployment.")
		os.Exit(1)
	}
	fmt.Println("🚀 VERDICT: SECURITY POSTURE VALIDATED. System is ready for launch.")
}
