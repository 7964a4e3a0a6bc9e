package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/scrubber"
)

var scrapeOutput *string

func init() {
	scrapeOutput = scrapeCmd.Flags().StringP("output", "o", "text", "Output format: text, table, yaml or json.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <path> [-o text|table|yaml|json]",
	Short: "Scrapes one listing by its site-relative path and prints the record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}

		s, err := scrubber.NewFromConfig(cfg, slog.Default())
		if err != nil {
			return err
		}

		rec, status, err := s.Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		slog.Debug("scrape finished", "path", args[0], "cache_status", status)

		return writeRecord(cmd.OutOrStdout(), *scrapeOutput, rec)
	},
}

func writeRecord(w io.Writer, format string, rec *models.RestaurantRecord) error {
	switch format {
	case "text":
		_, err := fmt.Fprintln(w, rec.String())
		return err
	case "table":
		return writeTable(w, rec)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rec)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTable(w io.Writer, rec *models.RestaurantRecord) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})

	t.AppendRow(table.Row{"exists", strconv.FormatBool(rec.Exists)})
	if rec.ReviewCount != nil {
		t.AppendRow(table.Row{"review count", *rec.ReviewCount})
	}
	if rec.Price != nil {
		t.AppendRow(table.Row{"price", string(*rec.Price)})
	}
	if rec.Cuisines != nil {
		t.AppendRow(table.Row{"cuisines", strings.Join(rec.Cuisines, ", ")})
	}
	if rr := rec.RecentReviews; rr != nil {
		for i := range rr.Texts {
			t.AppendRow(table.Row{"review " + rr.Dates[i], rr.Texts[i]})
		}
	}

	t.Render()
	return nil
}
