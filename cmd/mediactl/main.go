// cmd/mediactl/main.go

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
	"mediaintel/internal/service/analysis"
	"mediaintel/internal/service/ingest"
	"mediaintel/internal/service/render"
)

const usage = `Usage: mediactl <command> [flags]

Commands:
  report   analyze an export and print the dashboard insights
  pages    list the navigation pages and their charts
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "report":
		return report(args[1:], out)
	case "pages":
		return pages(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}

	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

type reportOptions struct {
	file      string
	catalog   string
	page      string
	xlsx      string
	pngDir    string
	maxRows   int
	platform  string
	sentiment string
	mediaType string
	location  string
	from      string
	to        string
}

func report(args []string, out io.Writer) error {
	var opts reportOptions
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.file, "file", "", "CSV or Excel export to analyze (required)")
	fs.StringVar(&opts.catalog, "catalog", "", "chart catalog YAML (defaults to the built-in catalog)")
	fs.StringVar(&opts.page, "page", "", "only build the charts of this page (id or title)")
	fs.StringVar(&opts.xlsx, "xlsx", "", "write the workbook to this path")
	fs.StringVar(&opts.pngDir, "png", "", "write one PNG per chart into this directory")
	fs.IntVar(&opts.maxRows, "max-rows", 0, "reject files with more data rows (0 = unlimited)")
	fs.StringVar(&opts.platform, "platform", "", "comma separated platforms")
	fs.StringVar(&opts.sentiment, "sentiment", "", "comma separated sentiments")
	fs.StringVar(&opts.mediaType, "media-type", "", "comma separated media types")
	fs.StringVar(&opts.location, "location", "", "comma separated locations")
	fs.StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD)")
	fs.StringVar(&opts.to, "to", "", "last day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.file == "" {
		fs.Usage()
		return errors.New("-file is required")
	}

	filter, err := opts.filter()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", opts.file, err)
	}
	defer f.Close()

	mentions, ingestReport, err := ingest.NewParser(ingest.ParserConfig{MaxRows: opts.maxRows}).Parse(opts.file, f)
	if err != nil {
		return err
	}
	for _, w := range ingestReport.Warnings {
		color.New(color.FgYellow).Fprintf(out, "warning: %s\n", w)
	}

	info := mention.DatasetInfo{
		ID:       filepath.Base(opts.file),
		Name:     filepath.Base(opts.file),
		Format:   ingestReport.Format,
		RowCount: len(mentions),
		Columns:  ingestReport.Columns,
	}
	frame := analysis.NewFrame(mentions)
	builder := analysis.NewBuilder(catalog)

	var d *dashboard.Dashboard
	if opts.page != "" {
		d, err = builder.BuildPage(info, frame, filter, opts.page)
	} else {
		d, err = builder.Build(info, frame, filter)
	}
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintf(out, "\n%s: %d of %d rows after filters\n",
		info.Name, d.Summary.TotalMentions, ingestReport.RowsKept)
	printSummary(out, d.Summary)
	printInsights(out, d)
	printRecommendations(out, d.Recommendations)

	if opts.xlsx != "" {
		filtered, err := frame.Apply(filter)
		if err != nil {
			return err
		}
		if err := writeWorkbook(opts.xlsx, d, filtered.Mentions()); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "Workbook written to %s\n", opts.xlsx)
	}

	if opts.pngDir != "" {
		n, err := writeCharts(opts.pngDir, d)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(out, "%d charts written to %s\n", n, opts.pngDir)
	}

	return nil
}

func pages(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pages", flag.ContinueOnError)
	fs.SetOutput(out)
	catalogPath := fs.String("catalog", "", "chart catalog YAML (defaults to the built-in catalog)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Page", "Title", "Charts"})
	for _, p := range catalog.Pages {
		table.Append([]string{p.ID, p.Title, strings.Join(p.Charts, ", ")})
	}
	table.Render()
	return nil
}

func (o reportOptions) filter() (mention.Filter, error) {
	filter := mention.Filter{
		Platforms:  splitList(o.platform),
		Sentiments: splitList(o.sentiment),
		MediaTypes: splitList(o.mediaType),
		Locations:  splitList(o.location),
	}

	for _, d := range []struct {
		raw  string
		dest **time.Time
	}{{o.from, &filter.From}, {o.to, &filter.To}} {
		if d.raw == "" {
			continue
		}
		day, err := time.Parse(mention.DateLayout, d.raw)
		if err != nil {
			return mention.Filter{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d.raw)
		}
		*d.dest = &day
	}

	return filter, nil
}

func splitList(s string) []string {
	var values []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func loadCatalog(path string) (*analysis.Catalog, error) {
	if path == "" {
		return analysis.DefaultCatalog(), nil
	}
	return analysis.LoadCatalog(path)
}

func printSummary(out io.Writer, s dashboard.Summary) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	period := "-"
	if !s.From.IsZero() {
		period = s.From.Format(mention.DateLayout) + " to " + s.To.Format(mention.DateLayout)
	}

	table.AppendBulk([][]string{
		{"Mentions", humanize.Comma(int64(s.TotalMentions))},
		{"Engagements", humanize.Commaf(s.TotalEngagements)},
		{"Reach", humanize.Commaf(s.TotalReach)},
		{"Average engagement", fmt.Sprintf("%.2f", s.AverageEngagement)},
		{"Engagement std dev", fmt.Sprintf("%.2f", s.EngagementStdDev)},
		{"Period", period},
		{"Platforms", fmt.Sprint(s.Platforms)},
		{"Sources", fmt.Sprint(s.Sources)},
		{"Positive share", fmt.Sprintf("%.1f%%", s.PositiveShare*100)},
		{"Negative share", fmt.Sprintf("%.1f%%", s.NegativeShare*100)},
	})
	table.Render()
}

func printInsights(out io.Writer, d *dashboard.Dashboard) {
	color.New(color.FgYellow).Fprintln(out, "\nInsights")

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Chart", "Insight"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(true)
	table.SetColWidth(80)
	for _, c := range d.Charts {
		for _, insight := range c.Insights {
			table.Append([]string{c.Title, insight})
		}
	}
	table.Render()
}

func printRecommendations(out io.Writer, recommendations []string) {
	if len(recommendations) == 0 {
		return
	}
	color.New(color.FgYellow).Fprintln(out, "\nRecommendations")
	for _, r := range recommendations {
		fmt.Fprintf(out, "  - %s\n", r)
	}
}

func writeWorkbook(path string, d *dashboard.Dashboard, mentions []mention.Mention) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := render.Workbook(d, mentions, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCharts(dir string, d *dashboard.Dashboard) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("error creating %s: %w", dir, err)
	}

	written := 0
	for _, c := range d.Charts {
		if c.Empty {
			continue
		}
		path := filepath.Join(dir, c.ID+".png")
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("error creating %s: %w", path, err)
		}
		err = render.PNG(c, f, render.DefaultWidth, render.DefaultHeight)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if errors.Is(err, render.ErrEmptyChart) {
			os.Remove(path)
			continue
		}
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
