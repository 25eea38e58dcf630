package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/pipeline"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/storage"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

var searchTerm string

// productsCmd creates the "products" subcommand for reading stored products.
func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List or show stored products",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Storage, logger *slog.Logger) error {
				products, err := store.ListAll(ctx)
				if err != nil {
					return fmt.Errorf("list products: %w", err)
				}
				products = readable(products, logger)
				if searchTerm != "" {
					products = searchProducts(products, searchTerm)
				}
				if len(products) == 0 {
					fmt.Println("No products stored.")
					return nil
				}
				printProducts(os.Stdout, products)
				fmt.Printf("\n%d products\n", len(products))
				return nil
			})
		},
	}
	listCmd.Flags().StringVarP(&searchTerm, "search", "s", "", "fuzzy-match product names, best match first")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one stored product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Storage, logger *slog.Logger) error {
				stored, err := store.GetByID(ctx, id)
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("no product with id %d", id)
				}
				if err != nil {
					return fmt.Errorf("get product: %w", err)
				}
				p := readable([]types.Product{stored}, logger)[0]
				fmt.Printf("ID:          %d\n", p.ID)
				fmt.Printf("Name:        %s\n", p.Name)
				fmt.Printf("Price:       %s\n", p.Price)
				fmt.Printf("Rating:      %s\n", p.Rating)
				fmt.Printf("Description: %s\n", p.Description)
				fmt.Printf("Created:     %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Printf("Updated:     %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	})

	return cmd
}

// withStore opens the configured storage for the duration of fn.
func withStore(ctx context.Context, fn func(context.Context, storage.Storage, *slog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := setupLogger(cfg.Logging)

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	return fn(ctx, store, logger)
}

// readable fills fields missing from stored records with their sentinel.
// Collections shared with other writers can hold partial documents.
func readable(products []types.Product, logger *slog.Logger) []types.Product {
	out, _ := pipeline.Stored(logger).Run(products)
	return out
}

// productNames adapts a product list to fuzzy.Source.
type productNames []types.Product

func (p productNames) String(i int) string { return p[i].Name }

func (p productNames) Len() int { return len(p) }

// searchProducts returns the products whose name fuzzy-matches term, best first.
func searchProducts(products []types.Product, term string) []types.Product {
	matches := fuzzy.FindFrom(term, productNames(products))
	out := make([]types.Product, 0, len(matches))
	for _, m := range matches {
		out = append(out, products[m.Index])
	}
	return out
}
