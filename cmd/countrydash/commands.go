package main

import (
	"context"
	"countrydash/internal/config"
	"countrydash/internal/domain"
	"countrydash/internal/export"
	"countrydash/internal/query"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Shared view flags
	viewName   string
	viewColumn string
	viewMin    string
	viewMax    string
	viewSort   string
	viewDesc   bool
	viewLimit  int

	exportOutput string
	statsColumn  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the country table as CSV",
	Long: `Fetches the country table and writes it as CSV with a header row.

Example:
  countrydash export --column area_km2 --min 1000 --max 50000 -o filtered_countries.csv`,
	RunE: runExport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary statistics of a numeric column",
	RunE:  runStats,
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the country table",
	RunE:  runTable,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, tableCmd} {
		cmd.Flags().StringVar(&viewName, "name", "", "Keep countries whose name matches")
		cmd.Flags().StringVar(&viewColumn, "column", "", "Numeric column to filter by")
		cmd.Flags().StringVar(&viewMin, "min", "", "Lower bound for --column (inclusive)")
		cmd.Flags().StringVar(&viewMax, "max", "", "Upper bound for --column (inclusive)")
		cmd.Flags().StringVar(&viewSort, "sort", "", "Column to sort by")
		cmd.Flags().BoolVar(&viewDesc, "desc", false, "Sort descending")
		cmd.Flags().IntVar(&viewLimit, "limit", 0, "Keep only the first N rows")
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	statsCmd.Flags().StringVar(&statsColumn, "column", "", "Numeric column (required)")
	statsCmd.MarkFlagRequired("column")

	configCmd.AddCommand(configInitCmd)
}

// loadTable fetches the table for a one-shot command. A failed fetch is an error.
func loadTable() (*domain.CountryTable, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return newTableService(cfg, logger).Table(ctx)
}

func viewOptions() (query.Options, error) {
	opts := query.Options{
		Name:   viewName,
		Column: viewColumn,
		SortBy: viewSort,
		Order:  query.Ascending,
		Limit:  viewLimit,
	}
	if viewDesc {
		opts.Order = query.Descending
	}
	var err error
	if opts.Min, err = parseFlagBound(viewMin, "min"); err != nil {
		return opts, err
	}
	if opts.Max, err = parseFlagBound(viewMax, "max"); err != nil {
		return opts, err
	}
	if (opts.Min != nil || opts.Max != nil) && opts.Column == "" {
		return opts, fmt.Errorf("--min and --max require --column")
	}
	if opts.Limit < 0 {
		return opts, fmt.Errorf("invalid --limit %d", opts.Limit)
	}
	return opts, nil
}

func parseFlagBound(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return &v, nil
}

func loadView() (*domain.CountryTable, error) {
	opts, err := viewOptions()
	if err != nil {
		return nil, err
	}
	t, err := loadTable()
	if err != nil {
		return nil, err
	}
	return query.Apply(t, opts)
}

func runExport(cmd *cobra.Command, args []string) error {
	view, err := loadView()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := export.WriteCSV(w, view); err != nil {
		return err
	}
	logger.Info("Exported countries", zap.Int("rows", view.Len()), zap.String("output", exportOutput))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	if col, ok := domain.LookupColumn(statsColumn); !ok || !col.Numeric() {
		return fmt.Errorf("%q is not a numeric column", statsColumn)
	}
	t, err := loadTable()
	if err != nil {
		return err
	}
	s, err := query.Describe(t, statsColumn)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "column: %s\n", s.Column)
	fmt.Fprintf(out, "count:  %d\n", s.Count)
	fmt.Fprintf(out, "mean:   %s\n", formatStat(s.Mean))
	fmt.Fprintf(out, "median: %s\n", formatStat(s.Median))
	fmt.Fprintf(out, "std:    %s\n", formatStat(s.Std))
	fmt.Fprintf(out, "min:    %s\n", formatStat(s.Min))
	fmt.Fprintf(out, "max:    %s\n", formatStat(s.Max))
	return nil
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return humanize.CommafWithDigits(v, 2)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#101F38")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

func runTable(cmd *cobra.Command, args []string) error {
	view, err := loadView()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(view))
	fmt.Fprintf(cmd.OutOrStdout(), "%s countries\n", humanize.Comma(int64(view.Len())))
	return nil
}

func renderTable(view *domain.CountryTable) string {
	cols := domain.Columns()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(domain.ColumnNames()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case cols[col].Numeric():
				return numberStyle
			default:
				return cellStyle
			}
		})

	for _, r := range view.Rows() {
		t.Row(
			r.CountryName,
			r.GeoRegion,
			humanize.Comma(r.TotalPopulation),
			humanize.CommafWithDigits(r.AreaKm2, 2),
			strconv.FormatInt(r.BorderCount, 10),
			strconv.FormatInt(r.LanguageCount, 10),
			strconv.FormatInt(r.TimezoneCount, 10),
		)
	}
	return t.Render()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
