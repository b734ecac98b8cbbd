// internal/service/analysis/catalog.go

package analysis

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

// Special group_by values
const (
	GroupByDate        = "date"
	GroupByKeyword     = "keyword"
	GroupByCoordinates = "coordinates"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned for catalogs that fail validation
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the declarative description of pages, charts and recommendations
type Catalog struct {
	Pages           []dashboard.Page `yaml:"pages"`
	Charts          []ChartDef       `yaml:"charts"`
	Recommendations []string         `yaml:"recommendations"`
}

// ChartDef describes how one chart is aggregated and which insights it carries
type ChartDef struct {
	ID       string              `yaml:"id"`
	Title    string              `yaml:"title"`
	Kind     dashboard.ChartKind `yaml:"kind"`
	Page     string              `yaml:"page"`
	GroupBy  string              `yaml:"group_by"`
	SeriesBy string              `yaml:"series_by"`
	Measure  string              `yaml:"measure"`
	Value    string              `yaml:"value"`
	Limit    int                 `yaml:"limit"`
	Requires []string            `yaml:"requires"`
	XLabel   string              `yaml:"x_label"`
	YLabel   string              `yaml:"y_label"`
	Insights []RuleDef           `yaml:"insights"`
}

// RuleDef is one insight rule and the template that phrases it
type RuleDef struct {
	Rule     string `yaml:"rule"`
	Template string `yaml:"template"`
	Param    string `yaml:"param"`
	Limit    int    `yaml:"limit"`

	tmpl *template.Template
}

// LoadCatalog reads a catalog file, or the embedded default when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrInvalidCatalog)
	}

	pages := make(map[string]int, len(c.Pages))
	for i, p := range c.Pages {
		if p.ID == "" || p.Title == "" {
			return fmt.Errorf("%w: page %d needs id and title", ErrInvalidCatalog, i)
		}
		if _, dup := pages[p.ID]; dup {
			return fmt.Errorf("%w: duplicate page %q", ErrInvalidCatalog, p.ID)
		}
		pages[p.ID] = i
		c.Pages[i].Charts = nil
	}

	charts := make(map[string]struct{}, len(c.Charts))
	for i := range c.Charts {
		def := &c.Charts[i]
		if _, dup := charts[def.ID]; dup {
			return fmt.Errorf("%w: duplicate chart %q", ErrInvalidCatalog, def.ID)
		}
		charts[def.ID] = struct{}{}

		if err := def.validate(); err != nil {
			return fmt.Errorf("%w: chart %q: %v", ErrInvalidCatalog, def.ID, err)
		}

		idx, ok := pages[def.Page]
		if !ok {
			return fmt.Errorf("%w: chart %q: unknown page %q", ErrInvalidCatalog, def.ID, def.Page)
		}
		c.Pages[idx].Charts = append(c.Pages[idx].Charts, def.ID)
	}

	return nil
}

func (d *ChartDef) validate() error {
	if d.ID == "" {
		return errors.New("missing id")
	}
	if d.Title == "" {
		d.Title = d.ID
	}

	switch d.Measure {
	case "":
		d.Measure = MeasureCount
	case MeasureCount:
	case MeasureSum:
		if d.Value != mention.ColumnEngagements && d.Value != mention.ColumnReach {
			return fmt.Errorf("sum needs value engagements or reach, got %q", d.Value)
		}
	default:
		return fmt.Errorf("unknown measure %q", d.Measure)
	}
	if d.Measure == MeasureCount {
		d.Value = ""
	}

	switch d.Kind {
	case dashboard.KindPie, dashboard.KindBar:
		if d.GroupBy == GroupByDate || d.GroupBy == GroupByCoordinates {
			return fmt.Errorf("%s chart cannot group by %s", d.Kind, d.GroupBy)
		}
		if d.GroupBy != GroupByKeyword && !isCategorical(d.GroupBy) {
			return fmt.Errorf("unknown group_by %q", d.GroupBy)
		}
		if d.GroupBy == GroupByKeyword && d.Measure != MeasureCount {
			return errors.New("keyword charts only count")
		}
	case dashboard.KindLine:
		if d.GroupBy != GroupByDate {
			return errors.New("line chart must group by date")
		}
	case dashboard.KindStackedLine:
		if d.GroupBy != GroupByDate || !isCategorical(d.SeriesBy) {
			return errors.New("stacked_line chart must group by date with a categorical series_by")
		}
	case dashboard.KindScatter:
		if d.GroupBy != GroupByCoordinates {
			return errors.New("scatter chart must group by coordinates")
		}
	default:
		return fmt.Errorf("unknown kind %q", d.Kind)
	}

	for i := range d.Insights {
		r := &d.Insights[i]
		if _, ok := rules[r.Rule]; !ok {
			return fmt.Errorf("unknown insight rule %q", r.Rule)
		}
		tmpl, err := template.New(d.ID + "." + r.Rule).Funcs(templateFuncs).Parse(r.Template)
		if err != nil {
			return fmt.Errorf("insight %q: %v", r.Rule, err)
		}
		r.tmpl = tmpl
	}

	return nil
}

func isCategorical(column string) bool {
	switch column {
	case mention.ColumnHeadline, mention.ColumnPlatform, mention.ColumnSentiment,
		mention.ColumnLocation, mention.ColumnMediaType, mention.ColumnSource:
		return true
	}
	return false
}

// Page finds a page by id or title, ignoring case
func (c *Catalog) Page(name string) (dashboard.Page, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c.Pages {
		if strings.EqualFold(p.ID, name) || strings.EqualFold(p.Title, name) {
			return p, true
		}
	}
	return dashboard.Page{}, false
}

// DefaultPage is the first page of the catalog
func (c *Catalog) DefaultPage() dashboard.Page {
	return c.Pages[0]
}

// Chart returns the chart definition with the given id
func (c *Catalog) Chart(id string) (ChartDef, bool) {
	for _, d := range c.Charts {
		if d.ID == id {
			return d, true
		}
	}
	return ChartDef{}, false
}
