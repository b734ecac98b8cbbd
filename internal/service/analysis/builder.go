// internal/service/analysis/builder.go

package analysis

import (
	"fmt"
	"sort"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

// Builder turns a dataset frame into dashboards according to a catalog
type Builder struct {
	catalog *Catalog
}

// NewBuilder creates a new dashboard builder
func NewBuilder(catalog *Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Catalog returns the catalog the builder evaluates
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// Build evaluates every chart of the catalog over the filtered frame
func (b *Builder) Build(info mention.DatasetInfo, base *Frame, filter mention.Filter) (*dashboard.Dashboard, error) {
	return b.build(info, base, filter, b.catalog.Charts)
}

// BuildPage evaluates only the charts shown on one page
func (b *Builder) BuildPage(info mention.DatasetInfo, base *Frame, filter mention.Filter, page string) (*dashboard.Dashboard, error) {
	p, ok := b.catalog.Page(page)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownPage, page)
	}

	var defs []ChartDef
	for _, id := range p.Charts {
		if def, ok := b.catalog.Chart(id); ok {
			defs = append(defs, def)
		}
	}
	return b.build(info, base, filter, defs)
}

// BuildChart evaluates a single chart. It returns ErrUnknownChart for ids
// not in the catalog or whose required columns the dataset lacks.
func (b *Builder) BuildChart(info mention.DatasetInfo, base *Frame, filter mention.Filter, id string) (*dashboard.Chart, error) {
	def, ok := b.catalog.Chart(id)
	if !ok || !hasColumns(info, def.Requires) {
		return nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownChart, id)
	}

	frame, err := base.Apply(filter)
	if err != nil {
		return nil, err
	}
	chart := buildChart(def, frame.Mentions())
	return &chart, nil
}

func (b *Builder) build(info mention.DatasetInfo, base *Frame, filter mention.Filter, defs []ChartDef) (*dashboard.Dashboard, error) {
	frame, err := base.Apply(filter)
	if err != nil {
		return nil, err
	}
	mentions := frame.Mentions()

	d := &dashboard.Dashboard{
		DatasetID:       info.ID,
		Filter:          filter,
		Summary:         Summarize(mentions),
		Options:         OptionsFor(base.Mentions()),
		Charts:          []dashboard.Chart{},
		Recommendations: append([]string(nil), b.catalog.Recommendations...),
	}

	for _, def := range defs {
		if !hasColumns(info, def.Requires) {
			continue
		}
		d.Charts = append(d.Charts, buildChart(def, mentions))
	}

	return d, nil
}

func hasColumns(info mention.DatasetInfo, columns []string) bool {
	for _, c := range columns {
		if !info.HasColumn(c) {
			return false
		}
	}
	return true
}

func buildChart(def ChartDef, mentions []mention.Mention) dashboard.Chart {
	chart := dashboard.Chart{
		ID:     def.ID,
		Title:  def.Title,
		Kind:   def.Kind,
		Page:   def.Page,
		XLabel: def.XLabel,
		YLabel: def.YLabel,
		Series: []dashboard.Series{},
	}

	var in insightInput

	switch def.Kind {
	case dashboard.KindScatter:
		points, extent := GeoPoints(mentions)
		if len(points) > 0 {
			chart.Series = append(chart.Series, dashboard.Series{Name: def.Title, Points: points})
			chart.Extent = extent
		}
		in.points, in.extent = points, extent

	case dashboard.KindStackedLine:
		days, totals, values := DailyCountBy(mentions, def.SeriesBy, def.Value)
		for _, t := range TopN(totals, def.Limit) {
			points := make([]dashboard.Point, len(days))
			for i, day := range days {
				points[i] = dashboard.Point{Label: day, Value: values[t.Label][i]}
			}
			chart.Series = append(chart.Series, dashboard.Series{Name: t.Label, Points: points})
		}
		in.buckets = totals
		in.daily = DailySum(mentions, def.Value)

	case dashboard.KindLine:
		daily := DailySum(mentions, def.Value)
		if len(daily) > 0 {
			chart.Series = append(chart.Series, dashboard.Series{Name: def.Title, Points: toPoints(daily)})
		}
		in.daily = daily
		in.buckets = append([]Bucket(nil), daily...)
		sortBuckets(in.buckets)

	default:
		var buckets []Bucket
		switch {
		case def.GroupBy == GroupByKeyword:
			buckets = Keywords(mentions)
		case def.Measure == MeasureSum:
			buckets = SumBy(mentions, def.GroupBy, def.Value)
		default:
			buckets = CountBy(mentions, def.GroupBy)
		}
		if len(buckets) > 0 {
			chart.Series = append(chart.Series, dashboard.Series{Name: def.Title, Points: toPoints(TopN(buckets, def.Limit))})
		}
		in.buckets = buckets
	}

	if isEmpty(chart.Series) {
		chart.Empty = true
		chart.Insights = []string{NoDataInsight}
		return chart
	}

	chart.Insights = evaluate(def, in)
	return chart
}

func isEmpty(series []dashboard.Series) bool {
	for _, s := range series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

func toPoints(buckets []Bucket) []dashboard.Point {
	points := make([]dashboard.Point, len(buckets))
	for i, b := range buckets {
		points[i] = dashboard.Point{Label: b.Label, Value: b.Value, Share: b.Share}
	}
	return points
}

// Summarize computes the headline figures of a set of mentions
func Summarize(mentions []mention.Mention) dashboard.Summary {
	var s dashboard.Summary
	s.TotalMentions = len(mentions)
	if len(mentions) == 0 {
		return s
	}

	engagements := make([]float64, len(mentions))
	platforms := make(map[string]struct{})
	sources := make(map[string]struct{})
	var positive, negative int

	s.From, s.To = mentions[0].Date, mentions[0].Date
	for i, m := range mentions {
		engagements[i] = m.Engagements
		s.TotalEngagements += m.Engagements
		s.TotalReach += m.Reach
		platforms[m.Platform] = struct{}{}
		sources[m.Source] = struct{}{}

		switch m.Sentiment {
		case mention.SentimentPositive:
			positive++
		case mention.SentimentNegative:
			negative++
		}

		if m.Date.Before(s.From) {
			s.From = m.Date
		}
		if m.Date.After(s.To) {
			s.To = m.Date
		}
	}

	s.AverageEngagement, s.EngagementStdDev = meanStdDev(engagements)
	s.Platforms = len(platforms)
	s.Sources = len(sources)
	s.PositiveShare = float64(positive) / float64(len(mentions))
	s.NegativeShare = float64(negative) / float64(len(mentions))

	return s
}

// OptionsFor lists the selectable filter values of a set of mentions
func OptionsFor(mentions []mention.Mention) dashboard.Options {
	opts := dashboard.Options{
		Platforms:  distinct(mentions, mention.ColumnPlatform),
		Sentiments: distinct(mentions, mention.ColumnSentiment),
		MediaTypes: distinct(mentions, mention.ColumnMediaType),
		Locations:  distinct(mentions, mention.ColumnLocation),
	}
	for i, m := range mentions {
		if i == 0 || m.Date.Before(opts.MinDate) {
			opts.MinDate = m.Date
		}
		if i == 0 || m.Date.After(opts.MaxDate) {
			opts.MaxDate = m.Date
		}
	}
	return opts
}

func distinct(mentions []mention.Mention, column string) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, m := range mentions {
		v := m.Value(column)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
