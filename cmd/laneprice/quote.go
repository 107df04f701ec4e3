// README: quote subcommand: load a rate sheet, apply flags as a selection, print the quote.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lanepricing/internal/config"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/types"
)

// sheetFile keeps amounts as text so malformed values price as zero.
type sheetFile struct {
	BasePrice  string            `yaml:"base_price"`
	Surcharges map[string]string `yaml:"surcharges"`
}

type quoteOptions struct {
	file    string
	catalog string
	include []string
	all     bool
	qty     map[string]int
	margin  string
	asJSON  bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "laneprice",
		Short:         "Lane price calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newQuoteCmd())
	return root
}

func newQuoteCmd() *cobra.Command {
	opts := quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a rate sheet for a surcharge selection",
		Example: `  laneprice quote -f sheet.yaml --include fuelSurcharge --include additionalStops --qty additionalStops=3 --margin 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuote(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "rate sheet YAML file")
	f.StringVar(&opts.catalog, "catalog", "", "surcharge catalog YAML file")
	f.StringArrayVar(&opts.include, "include", nil, "surcharge key to include (repeatable)")
	f.BoolVar(&opts.all, "all", false, "include every surcharge on the sheet")
	f.StringToIntVar(&opts.qty, "qty", nil, "quantity per surcharge key, key=n")
	f.StringVar(&opts.margin, "margin", "0", "margin percentage")
	f.BoolVar(&opts.asJSON, "json", false, "print the estimate as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runQuote(out io.Writer, opts quoteOptions) error {
	catalog, err := config.LoadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	sheet, err := loadSheet(opts.file, catalog)
	if err != nil {
		return err
	}

	sel := pricing.Selection{Surcharges: map[string]pricing.SurchargeState{}}
	included := make(map[string]bool, len(opts.include))
	for _, k := range opts.include {
		if _, ok := catalog.Lookup(k); !ok {
			return fmt.Errorf("unknown surcharge %q", k)
		}
		included[k] = true
	}
	for _, k := range slices.Sorted(maps.Keys(opts.qty)) {
		d, ok := catalog.Lookup(k)
		switch {
		case !ok:
			return fmt.Errorf("unknown surcharge %q", k)
		case d.Kind != pricing.KindPerUnit:
			return fmt.Errorf("surcharge %q has no quantity", k)
		case !opts.all && !included[k]:
			return fmt.Errorf("quantity for %q needs --include %s or --all", k, k)
		}
	}
	for _, s := range sheet.Surcharges {
		if opts.all || included[s.Key] {
			sel = sel.With(s.Key, pricing.SurchargeState{Included: true, Quantity: opts.qty[s.Key]})
		}
	}

	est := pricing.EstimateSheet(sheet, sel, types.ParseAmount(opts.margin))
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}
	return printEstimate(out, est, catalog)
}

func loadSheet(path string, catalog *pricing.Catalog) (pricing.RateSheet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pricing.RateSheet{}, fmt.Errorf("read rate sheet: %w", err)
	}
	var f sheetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return pricing.RateSheet{}, fmt.Errorf("parse rate sheet %s: %w", path, err)
	}
	values := make(map[string]decimal.Decimal, len(f.Surcharges))
	for k, v := range f.Surcharges {
		values[k] = types.ParseAmount(v)
	}
	return catalog.Sheet(types.ParseAmount(f.BasePrice), values), nil
}

func printEstimate(out io.Writer, est pricing.Estimate, catalog *pricing.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Base price\t\t%s\n", types.FormatAmount(est.Quote.BasePrice))
	for _, l := range est.Quote.Lines {
		label := l.Key
		if d, ok := catalog.Lookup(l.Key); ok {
			label = d.Label
		}
		detail := ""
		if l.Kind == pricing.KindPerUnit {
			detail = fmt.Sprintf("x%d", l.Quantity)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", label, detail, types.FormatAmount(l.Amount))
	}
	if !est.Quote.Rounding.IsZero() {
		fmt.Fprintf(w, "Rounding\t\t%s\n", types.FormatAmount(est.Quote.Rounding))
	}
	fmt.Fprintf(w, "%s\t\t%s\n", strings.Repeat("-", 10), strings.Repeat("-", 8))
	fmt.Fprintf(w, "Total\t\t%s %s\n", types.FormatAmount(est.SalesPrice.Amount), est.SalesPrice.Currency)
	fmt.Fprintf(w, "Margin\t\t%s %s\n", types.FormatAmount(est.Margin.Amount), est.Margin.Currency)
	return w.Flush()
}
