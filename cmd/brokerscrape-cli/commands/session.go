package commands

import (
	"context"
	"log/slog"

	"brokerscrape/internal/components/chrono"
	"brokerscrape/internal/components/telemetry"
	"brokerscrape/internal/db"
	"brokerscrape/internal/scrapers/brokerage"
	"brokerscrape/pkg/serviceutil"
)

func login(ctx context.Context) *brokerage.Client {
	variant, err := brokerage.LookupVariant(cfg.Variant)
	if err != nil {
		serviceutil.Fatal("failed to select site", err)
	}

	client, err := brokerage.NewClient(brokerage.ClientOptions{
		Variant:          variant,
		BaseUrl:          cfg.BaseUrl,
		CloudflareBypass: cfg.CloudflareBypass,
	}, telemetry.NewSlogAPI(nil))
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}

	slog.Info("signing in", "variant", variant.Name, "username", cfg.Username)
	err = client.Login(ctx, brokerage.Credentials{
		Username:     cfg.Username,
		Password:     cfg.Password,
		SecretImage:  cfg.SecretImage,
		SecretPhrase: cfg.SecretPhrase,
	})
	if err != nil {
		serviceutil.Fatal("failed to sign in", err)
	}
	return client
}

// openStore returns nil when no --db was given.
func openStore() *db.Store {
	if *dbPath == "" {
		return nil
	}
	store, err := db.Open(*dbPath)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return store
}

func clock() chrono.API {
	c, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}
	return c
}
