package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/driver"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/extract"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

var (
	extractJSON  bool
	extractMerge bool
)

// extractCmd creates the "extract" subcommand.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file|url]",
		Short: "Extract products from a saved listing page or a URL without a browser",
		Long: `Run the extraction chains against one page using the static HTML driver.

Useful for checking selector chains against a page saved from the browser
("Save page as...") after the live markup changed. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().BoolVar(&extractJSON, "json", false, "print products as JSON")
	cmd.Flags().BoolVar(&extractMerge, "merge", false, "union matches of all container selectors")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractMerge {
		cfg.Extraction.MergeContainers = true
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	d := driver.NewHTMLDriver(cfg.Browser, logger)
	defer d.Close()

	target := args[0]
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if err := d.Navigate(context.Background(), target); err != nil {
			return fmt.Errorf("load %s: %w", target, err)
		}
	} else if err := d.LoadFile(target); err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}

	res, err := extract.New(cfg.Extraction, logger).ExtractPage(d)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if extractJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Products)
	}

	if res.Attempted == 0 {
		fmt.Println("No product containers matched.")
		return nil
	}
	fmt.Printf("Container selector: %s\n", res.Selector)
	fmt.Printf("Containers: %d attempted, %d skipped, %d failed\n\n", res.Attempted, res.Skipped, res.Failed)
	printProducts(os.Stdout, res.Products)
	return nil
}

func printProducts(w io.Writer, products []types.Product) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Name", "Price", "Rating", "Description"})
	for i, p := range products {
		id := int64(i + 1)
		if p.ID != 0 {
			id = p.ID
		}
		t.AppendRow(table.Row{id, truncate(p.Name, 60), p.Price, p.Rating, truncate(p.Description, 60)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
