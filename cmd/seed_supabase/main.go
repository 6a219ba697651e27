// Command seed_supabase bootstraps a Supabase project with the first
// admin account so the API has a principal that can approve node
// operators. It is idempotent: re-running against a seeded project is
// a no-op.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/estatelink/tre-backend/internal/app/services/auth"
	"github.com/estatelink/tre-backend/internal/app/storage/supabase"
	"github.com/estatelink/tre-backend/internal/config"
	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

func main() {
	var (
		envFile    = flag.String("env", "", "optional .env file to load before reading configuration")
		name       = flag.String("name", "Platform Admin", "display name for the seeded admin")
		email      = flag.String("email", "", "email for the seeded admin (required)")
		password   = flag.String("password", "", "password for the seeded admin (required, min 8 chars)")
		ethAddress = flag.String("eth-address", "", "optional Ethereum address for the seeded admin")
		role       = flag.String("role", "superadmin", "role assigned to the seeded admin")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "both -email and -password are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if cfg.SupabaseURL == "" {
		fmt.Fprintln(os.Stderr, "SUPABASE_URL must be set")
		os.Exit(1)
	}

	log := logger.New("seed", cfg.LogLevel, cfg.LogFormat)

	client, err := supabase.NewClient(supabase.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseServiceKey,
	})
	if err != nil {
		log.WithError(err).Fatal("configure supabase client")
	}
	store := supabase.NewStore(client, log)

	signer, err := token.NewSigner(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.WithError(err).Fatal("configure token signer")
	}
	svc := auth.New(store, store, signer, log)

	created, _, err := svc.AdminSignup(context.Background(), auth.AdminSignupInput{
		Name:       *name,
		Email:      *email,
		Password:   *password,
		EthAddress: *ethAddress,
		Role:       *role,
	})
	if err != nil {
		if errors.IsConflict(err) {
			log.WithField("email", *email).Info("admin already exists, nothing to do")
			return
		}
		log.WithError(err).Fatal("seed admin")
	}

	log.WithField("admin_id", created.ID).Info("seeded admin account")
}
