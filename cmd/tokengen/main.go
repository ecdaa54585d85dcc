package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tendant/simple-oxtrust/pkg/adminauth"
	"github.com/tendant/simple-oxtrust/pkg/config"
)

// tokengen issues admin tokens accepted by the oxtrust API.
func main() {
	defaults := config.NewJWTConfigFromEnv()

	secret := flag.String("secret", defaults.Secret, "Secret key for signing the token")
	issuer := flag.String("issuer", defaults.Issuer, "Issuer of the token")
	audience := flag.String("audience", defaults.Audience, "Audience of the token")
	subject := flag.String("subject", "admin", "Subject of the token (usually user ID)")
	name := flag.String("name", "", "Display name of the admin")
	roles := flag.String("roles", "admin", "Comma separated roles")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	cfg := config.JWTConfig{
		Secret:   *secret,
		Issuer:   *issuer,
		Audience: *audience,
	}

	tokenStr, expiryTime, err := adminauth.IssueToken(cfg, *subject, *name, config.SplitAndTrim(*roles, ","), *expiry)
	if err != nil {
		slog.Error("Failed to generate token", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nExpires: %s\n", tokenStr, expiryTime.Format(time.RFC3339))
	case "debug":
		claims, err := adminauth.ParseToken(cfg, tokenStr)
		if err != nil {
			slog.Error("Failed to parse generated token", "err", err)
			fmt.Fprintf(os.Stderr, "Error: Failed to parse generated token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("=== Token Information ===\n")
		fmt.Printf("Token: %s\n\n", tokenStr)
		fmt.Printf("=== Token Claims ===\n")
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("%s\n\n", claimsJSON)
		fmt.Printf("Admin roles accepted by default: %v\n", defaults.AdminRoleNames())
		fmt.Printf("Expires: %s\n", expiryTime.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
