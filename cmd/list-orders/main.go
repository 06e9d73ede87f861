package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/orders"
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

	svc := orders.NewService(blobs, nil, nil, logger)
	records, err := svc.List(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list orders: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No orders found.")
		os.Exit(0)
	}

	fmt.Printf("%-14s %-10s %-12s %-28s %s\n", "REFERENCE", "STATUS", "AMOUNT", "CREATED", "EMAIL")
	for _, r := range records {
		fmt.Printf("%-14s %-10s %-12s %-28s %s\n",
			r.Reference,
			r.Status,
			r.Amount.String(),
			r.CreatedAt.Format("2006-01-02 15:04:05 MST"),
			r.Draft.Contact.Email,
		)
	}
	fmt.Printf("\n%d order(s)\n", len(records))
}
