package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/newsletter"
	"github.com/iharalondon/storefront/internal/storage"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	blobs, err := storage.Open(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer blobs.Close()

	svc := newsletter.NewService(blobs, nil, cfg.BaseURL,
		time.Duration(cfg.Newsletter.TokenTTLHours)*time.Hour, logger)
	subs, err := svc.List(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list subscribers: %v\n", err)
		os.Exit(1)
	}

	if len(subs) == 0 {
		fmt.Println("No subscribers found.")
		os.Exit(0)
	}

	fmt.Printf("%-36s %-12s %s\n", "EMAIL", "STATE", "SINCE")
	for _, s := range subs {
		state := "pending"
		since := s.CreatedAt
		switch {
		case s.UnsubscribedAt != nil:
			state = "unsubscribed"
			since = *s.UnsubscribedAt
		case s.ConfirmedAt != nil:
			state = "confirmed"
			since = *s.ConfirmedAt
		}
		fmt.Printf("%-36s %-12s %s\n", s.Email, state, since.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Printf("\n%d subscriber(s)\n", len(subs))
}
