package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
	"github.com/bookmarket/addrvault/api/internal/infrastructure/crypto"
)

const minJWTSecretLen = 32

func main() {
	fmt.Println("🔍 Address vault: Running Security Posture Audit...")

	// 1. Load the current Environment
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  Warning: No .env file found, checking system env vars...")
	}

	hasErrors := false
	fail := func(format string, args ...any) {
		fmt.Printf("❌ FAIL: "+format+"\n", args...)
		hasErrors = true
	}

	// --- Audit Point 1: JWT Secret Strength ---
	jwtSec := os.Getenv("JWT_SECRET")
	if len(jwtSec) < minJWTSecretLen {
		fail("JWT_SECRET is too short. Min: %d characters (Current: %d)", minJWTSecretLen, len(jwtSec))
	} else {
		fmt.Println("✅ PASS: JWT secret length is sufficient.")
	}

	// --- Audit Point 2: Database Credentials ---
	dbURL := os.Getenv("DATABASE_URL")
	switch {
	case dbURL == "":
		fail("DATABASE_URL must be set.")
	case strings.Contains(dbURL, "dev_password"):
		fail("DATABASE_URL is using default development credentials.")
	default:
		fmt.Println("✅ PASS: Database URL does not use default credentials.")
	}

	// --- Audit Point 3: Current Key Version ---
	current := 1
	if v := os.Getenv("ADDRESS_ENCRYPTION_CURRENT_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fail("ADDRESS_ENCRYPTION_CURRENT_VERSION must be a positive integer (Current: %q)", v)
		} else {
			current = n
		}
	}

	resolver := crypto.NewEnvKeyResolver(current)
	if _, err := resolver.ResolveKey(context.Background(), current); err != nil {
		fail("key version %d does not resolve: %s", current, reasonOf(err))
	} else {
		fmt.Printf("✅ PASS: Current key version %d resolves to 256-bit key material.\n", current)
	}

	// --- Audit Point 4: Every configured slot ---
	for _, v := range crypto.ConfiguredVersions(os.Environ()) {
		if _, err := resolver.ResolveKey(context.Background(), v); err != nil {
			fail("%s is not valid key material: %s", crypto.KeySlot(v), reasonOf(err))
			continue
		}
		fmt.Printf("✅ PASS: %s holds a 32-byte key.\n", crypto.KeySlot(v))
	}
	if os.Getenv(crypto.FallbackKeySlot) != "" {
		fmt.Printf("⚠️  NOTICE: %s is set; versions without their own slot will silently share it.\n", crypto.FallbackKeySlot)
	}

	// 2. Final Verdict
	fmt.Println("--------------------------------------------------")
	if hasErrors {
		fmt.Println("🚨 VERDICT: SECURITY POSTURE FAILED.")
		fmt.Println("Fix the errors above before attempting deployment.")
		os.Exit(1)
	}
	fmt.Println("🚀 VERDICT: SECURITY POSTURE VALIDATED. System is ready for launch.")
}

func reasonOf(err error) string {
	if ce, ok := domain.AsCryptoError(err); ok {
		return ce.Reason
	}
	return err.Error()
}
