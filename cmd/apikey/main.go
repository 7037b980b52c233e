// Command apikey manages the provider API keys stored in the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"sakuga/internal/adapter/repo"
	"sakuga/internal/infra"
	"sakuga/internal/providers"
)

func main() {
	var (
		providerFlag string
		keyFlag      string
		deleteFlag   bool
		listFlag     bool
	)
	flag.StringVar(&providerFlag, "provider", "", "provider to configure")
	flag.StringVar(&keyFlag, "key", "", "API key (falls back to the provider's environment variable)")
	flag.BoolVar(&deleteFlag, "delete", false, "delete the stored key instead of setting one")
	flag.BoolVar(&listFlag, "list", false, "list stored providers")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := infra.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure schema: %v\n", err)
		os.Exit(1)
	}
	keys := repo.NewAPIKeyRepository(pool)

	if listFlag {
		records, err := keys.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list keys: %v\n", err)
			os.Exit(1)
		}
		for _, rec := range records {
			fmt.Printf("%s\t(updated %s)\n", rec.Provider, rec.UpdatedAt.Format(time.RFC3339))
		}
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	envVar, ok := providers.EnvVar(provider)
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	if deleteFlag {
		if err := keys.Delete(ctx, provider); err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete %s api key: %v\n", provider, err)
			os.Exit(1)
		}
		fmt.Printf("%s API key deleted\n", strings.ToUpper(provider))
		return
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envVar))
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or %s\n", strings.ToUpper(provider), envVar)
		os.Exit(1)
	}

	if err := keys.Upsert(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}
	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}
