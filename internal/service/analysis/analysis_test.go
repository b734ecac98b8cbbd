package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func coord(v float64) *float64 {
	return &v
}

func sampleMentions() []mention.Mention {
	return []mention.Mention{
		{Date: day(1), Headline: "Launch event draws crowds in Jakarta", Platform: "Twitter", Sentiment: "positive", Location: "Jakarta", MediaType: "Video", Source: "Kompas", Engagements: 100, Reach: 1000, Latitude: coord(-6.2), Longitude: coord(106.8)},
		{Date: day(1), Headline: "Launch pricing criticised", Platform: "Instagram", Sentiment: "negative", Location: "Bandung", MediaType: "Image", Source: "Detik", Engagements: 50, Reach: 400},
		{Date: day(2), Headline: "Launch event recap", Platform: "Twitter", Sentiment: "neutral", Location: "Jakarta", MediaType: "Text", Source: "Kompas", Engagements: 30, Reach: 300},
		{Date: day(4), Headline: "Crowds return for second event", Platform: "Facebook", Sentiment: "positive", Location: "Surabaya", MediaType: "Video", Source: "Tempo", Engagements: 200, Reach: 2500, Latitude: coord(-7.25), Longitude: coord(112.75)},
	}
}

func sampleInfo() mention.DatasetInfo {
	return mention.DatasetInfo{
		ID:      "ds-1",
		Columns: mention.Columns,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestFrameApply(t *testing.T) {
	frame := NewFrame(sampleMentions())

	tests := []struct {
		name   string
		filter mention.Filter
		want   []string
	}{
		{"no filter", mention.Filter{}, []string{"2024-01-01", "2024-01-01", "2024-01-02", "2024-01-04"}},
		{"platform ignores case", mention.Filter{Platforms: []string{"twitter"}}, []string{"2024-01-01", "2024-01-02"}},
		{"values within a field are alternatives", mention.Filter{Platforms: []string{"Twitter", "FACEBOOK"}}, []string{"2024-01-01", "2024-01-02", "2024-01-04"}},
		{"fields combine", mention.Filter{Platforms: []string{"Twitter"}, Sentiments: []string{"positive"}}, []string{"2024-01-01"}},
		{"from is inclusive", mention.Filter{From: timePtr(day(2))}, []string{"2024-01-02", "2024-01-04"}},
		{"to is inclusive", mention.Filter{To: timePtr(day(1))}, []string{"2024-01-01", "2024-01-01"}},
		{"empty range", mention.Filter{From: timePtr(day(3)), To: timePtr(day(3))}, []string{}},
		{"unknown value", mention.Filter{Locations: []string{"Nowhere"}}, []string{}},
		{"media type", mention.Filter{MediaTypes: []string{"video"}}, []string{"2024-01-01", "2024-01-04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := frame.Apply(tt.filter)
			if err != nil {
				t.Fatalf("Apply error: %v", err)
			}
			if got.Len() != len(tt.want) {
				t.Fatalf("expected %d rows, got %d", len(tt.want), got.Len())
			}
			for i, m := range got.Mentions() {
				if m.Day() != tt.want[i] {
					t.Errorf("row %d: expected %s, got %s", i, tt.want[i], m.Day())
				}
			}
		})
	}
}

func TestFrameApplyEmptyDataset(t *testing.T) {
	frame := NewFrame(nil)
	got, err := frame.Apply(mention.Filter{Platforms: []string{"Twitter"}})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected no rows, got %d", got.Len())
	}
}

func TestCountBy(t *testing.T) {
	buckets := CountBy(sampleMentions(), mention.ColumnSentiment)

	want := []Bucket{
		{Label: "positive", Value: 2, Share: 0.5},
		{Label: "negative", Value: 1, Share: 0.25},
		{Label: "neutral", Value: 1, Share: 0.25},
	}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(buckets))
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Errorf("bucket %d: expected %+v, got %+v", i, want[i], buckets[i])
		}
	}
}

func TestSumByAndTopN(t *testing.T) {
	buckets := SumBy(sampleMentions(), mention.ColumnPlatform, mention.ColumnEngagements)

	labels := []string{"Facebook", "Twitter", "Instagram"}
	values := []float64{200, 130, 50}
	for i := range labels {
		if buckets[i].Label != labels[i] || buckets[i].Value != values[i] {
			t.Errorf("bucket %d: got %+v", i, buckets[i])
		}
	}

	top := TopN(buckets, 2)
	if len(top) != 2 || top[1].Label != "Twitter" {
		t.Fatalf("unexpected top 2: %+v", top)
	}
	if math.Abs(top[0].Share-200.0/380.0) > 1e-9 {
		t.Errorf("expected share relative to the full total, got %v", top[0].Share)
	}
}

func TestDailySum(t *testing.T) {
	daily := DailySum(sampleMentions(), mention.ColumnEngagements)

	want := []Bucket{
		{Label: "2024-01-01", Value: 150},
		{Label: "2024-01-02", Value: 30},
		{Label: "2024-01-03", Value: 0},
		{Label: "2024-01-04", Value: 200},
	}
	if len(daily) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(daily))
	}
	for i := range want {
		if daily[i].Label != want[i].Label || daily[i].Value != want[i].Value {
			t.Errorf("day %d: expected %+v, got %+v", i, want[i], daily[i])
		}
	}

	counts := DailySum(sampleMentions(), "")
	if counts[0].Value != 2 {
		t.Errorf("expected 2 mentions on the first day, got %v", counts[0].Value)
	}
}

func TestDailyCountBy(t *testing.T) {
	days, totals, series := DailyCountBy(sampleMentions(), mention.ColumnSentiment, "")

	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %v", days)
	}
	if totals[0].Label != "positive" || totals[0].Value != 2 {
		t.Errorf("unexpected leading series: %+v", totals[0])
	}

	want := []float64{1, 0, 0, 1}
	for i, v := range series["positive"] {
		if v != want[i] {
			t.Errorf("positive day %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestKeywords(t *testing.T) {
	buckets := Keywords(sampleMentions())

	if len(buckets) < 3 {
		t.Fatalf("expected keywords, got %+v", buckets)
	}
	if buckets[0].Label != "event" || buckets[0].Value != 3 {
		t.Errorf("expected event x3 first, got %+v", buckets[0])
	}
	if buckets[1].Label != "launch" || buckets[2].Label != "crowds" {
		t.Errorf("unexpected order: %+v", buckets[:3])
	}
	for _, b := range buckets {
		if b.Label == "for" || b.Label == "in" {
			t.Errorf("stopword %q not removed", b.Label)
		}
	}

	if got := tokenize("Harga naik 2024 di Jakarta dan Bandung"); strings.Join(got, " ") != "harga naik jakarta bandung" {
		t.Errorf("unexpected tokens: %v", got)
	}
}

func TestGeoPoints(t *testing.T) {
	points, extent := GeoPoints(sampleMentions())

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if extent == nil {
		t.Fatal("expected an extent")
	}
	if extent.MinLatitude != -7.25 || extent.MaxLatitude != -6.2 {
		t.Errorf("unexpected latitude bounds: %+v", extent)
	}
	if extent.MinLongitude != 106.8 || extent.MaxLongitude != 112.75 {
		t.Errorf("unexpected longitude bounds: %+v", extent)
	}
	if math.Abs(extent.CenterLat-(-6.725)) > 1e-9 {
		t.Errorf("unexpected center latitude %v", extent.CenterLat)
	}

	if _, none := GeoPoints(sampleMentions()[1:3]); none != nil {
		t.Error("expected nil extent without coordinates")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleMentions())

	if s.TotalMentions != 4 || s.TotalEngagements != 380 || s.TotalReach != 4200 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.AverageEngagement != 95 {
		t.Errorf("expected average 95, got %v", s.AverageEngagement)
	}
	if s.EngagementStdDev <= 0 {
		t.Errorf("expected positive std dev, got %v", s.EngagementStdDev)
	}
	if s.Platforms != 3 || s.Sources != 3 {
		t.Errorf("unexpected distinct counts: %+v", s)
	}
	if s.PositiveShare != 0.5 || s.NegativeShare != 0.25 {
		t.Errorf("unexpected sentiment shares: %+v", s)
	}
	if !s.From.Equal(day(1)) || !s.To.Equal(day(4)) {
		t.Errorf("unexpected range %v - %v", s.From, s.To)
	}

	if empty := Summarize(nil); empty.TotalMentions != 0 || empty.AverageEngagement != 0 {
		t.Errorf("unexpected empty summary: %+v", empty)
	}
}

func TestBuild(t *testing.T) {
	b := NewBuilder(DefaultCatalog())

	d, err := b.Build(sampleInfo(), NewFrame(sampleMentions()), mention.Filter{})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if len(d.Charts) != len(b.Catalog().Charts) {
		t.Fatalf("expected every chart, got %d", len(d.Charts))
	}
	if len(d.Recommendations) == 0 {
		t.Error("expected recommendations")
	}

	tests := []struct {
		chart   string
		insight string
	}{
		{"sentiment_breakdown", "Most mentions are positive (50.0% of 4)."},
		{"sentiment_breakdown", "25.0% of mentions are negative."},
		{"engagement_trend", "Engagement peaked on 2024-01-04 with 200 engagements."},
		{"engagement_trend", "The quietest day was 2024-01-03 with 0 engagements."},
		{"engagement_trend", "Engagement is increasing across the period (11.1% between the first and second half)."},
		{"platform_engagement", "Facebook drives the most engagement with 200 (52.6% of the total)."},
		{"platform_engagement", "Instagram has the lowest engagement with 50."},
		{"top_locations", "The most active locations are Jakarta, Bandung and Surabaya."},
		{"media_type_mix", "Mentions span 3 media types."},
	}
	for _, tt := range tests {
		chart, ok := d.Chart(tt.chart)
		if !ok {
			t.Errorf("chart %s missing", tt.chart)
			continue
		}
		if !contains(chart.Insights, tt.insight) {
			t.Errorf("chart %s: expected insight %q in %q", tt.chart, tt.insight, chart.Insights)
		}
	}

	geo, ok := d.Chart("geo_map")
	if !ok || geo.Extent == nil || len(geo.Insights) != 1 || !strings.HasPrefix(geo.Insights[0], "2 geotagged mentions centred near -6.7") {
		t.Errorf("unexpected geo chart: %+v", geo)
	}

	trend, _ := d.Chart("sentiment_over_time")
	if trend.Kind != dashboard.KindStackedLine || len(trend.Series) != 3 {
		t.Errorf("expected 3 sentiment series, got %+v", trend.Series)
	}
}

func TestBuildOmitsChartsWithoutRequiredColumns(t *testing.T) {
	info := mention.DatasetInfo{ID: "ds-2", Columns: []string{mention.ColumnDate, mention.ColumnPlatform}}

	d, err := NewBuilder(DefaultCatalog()).Build(info, NewFrame(sampleMentions()), mention.Filter{})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	for _, id := range []string{"geo_map", "top_headlines", "headline_keywords", "reach_by_platform"} {
		if _, ok := d.Chart(id); ok {
			t.Errorf("chart %s should be omitted", id)
		}
	}
	if _, ok := d.Chart("platform_engagement"); !ok {
		t.Error("platform_engagement should be present")
	}
}

func TestBuildEmptyFilter(t *testing.T) {
	filter := mention.Filter{Platforms: []string{"Myspace"}}

	d, err := NewBuilder(DefaultCatalog()).Build(sampleInfo(), NewFrame(sampleMentions()), filter)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if d.Summary.TotalMentions != 0 {
		t.Errorf("expected no mentions, got %d", d.Summary.TotalMentions)
	}
	if len(d.Options.Platforms) != 3 {
		t.Errorf("options should come from the unfiltered dataset, got %v", d.Options.Platforms)
	}
	for _, c := range d.Charts {
		if !c.Empty || len(c.Insights) != 1 || c.Insights[0] != NoDataInsight {
			t.Errorf("chart %s: expected empty chart with no-data insight, got %+v", c.ID, c)
		}
	}
}

func TestBuildPageAndChart(t *testing.T) {
	b := NewBuilder(DefaultCatalog())
	base := NewFrame(sampleMentions())

	d, err := b.BuildPage(sampleInfo(), base, mention.Filter{}, "Keyword Trends")
	if err != nil {
		t.Fatalf("BuildPage error: %v", err)
	}
	if len(d.Charts) != 1 || d.Charts[0].ID != "headline_keywords" {
		t.Fatalf("unexpected page charts: %+v", d.Charts)
	}

	if _, err := b.BuildPage(sampleInfo(), base, mention.Filter{}, "nope"); !errors.Is(err, dashboard.ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}

	chart, err := b.BuildChart(sampleInfo(), base, mention.Filter{Sentiments: []string{"positive"}}, "platform_engagement")
	if err != nil {
		t.Fatalf("BuildChart error: %v", err)
	}
	if len(chart.Series[0].Points) != 2 {
		t.Errorf("expected 2 platforms for positive mentions, got %+v", chart.Series[0].Points)
	}

	if _, err := b.BuildChart(sampleInfo(), base, mention.Filter{}, "nope"); !errors.Is(err, dashboard.ErrUnknownChart) {
		t.Errorf("expected ErrUnknownChart, got %v", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	if len(c.Pages) != 10 {
		t.Fatalf("expected 10 pages, got %d", len(c.Pages))
	}
	if c.DefaultPage().Title != "Home" {
		t.Errorf("expected Home first, got %q", c.DefaultPage().Title)
	}
	overview, ok := c.Page("dashboard overview")
	if !ok {
		t.Fatal("expected page lookup by title")
	}
	if !contains(overview.Charts, "sentiment_breakdown") || !contains(overview.Charts, "geo_map") {
		t.Errorf("unexpected overview charts: %v", overview.Charts)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	const pages = "pages:\n  - {id: home, title: Home}\n"

	tests := []struct {
		name   string
		charts string
	}{
		{"unknown kind", "charts:\n  - {id: a, kind: radar, page: home, group_by: platform}\n"},
		{"duplicate chart", "charts:\n  - {id: a, kind: bar, page: home, group_by: platform}\n  - {id: a, kind: bar, page: home, group_by: source}\n"},
		{"unknown page", "charts:\n  - {id: a, kind: bar, page: nope, group_by: platform}\n"},
		{"sum without value", "charts:\n  - {id: a, kind: bar, page: home, group_by: platform, measure: sum}\n"},
		{"line not by date", "charts:\n  - {id: a, kind: line, page: home, group_by: platform}\n"},
		{"unknown rule", "charts:\n  - id: a\n    kind: bar\n    page: home\n    group_by: platform\n    insights:\n      - {rule: median, template: x}\n"},
		{"bad template", "charts:\n  - id: a\n    kind: bar\n    page: home\n    group_by: platform\n    insights:\n      - {rule: leader, template: \"{{.Label\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(pages + tt.charts)); !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}

	if _, err := ParseCatalog([]byte("charts: []\n")); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("expected error for a catalog without pages, got %v", err)
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := formatNumber(1234567.891); got != "1,234,567.89" {
		t.Errorf("formatNumber = %q", got)
	}
	if got := formatPercent(0.125); got != "12.5%" {
		t.Errorf("formatPercent = %q", got)
	}
	if got := joinLabels([]string{"A", "B", "C"}); got != "A, B and C" {
		t.Errorf("joinLabels = %q", got)
	}
	if got := joinLabels([]string{"A"}); got != "A" {
		t.Errorf("joinLabels single = %q", got)
	}
	if got := titleCase("negative"); got != "Negative" {
		t.Errorf("titleCase = %q", got)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func TestTrendRule(t *testing.T) {
	daily := func(values ...float64) []Bucket {
		buckets := make([]Bucket, len(values))
		for i, v := range values {
			buckets[i] = Bucket{Label: fmt.Sprintf("2024-01-%02d", i+1), Value: v}
		}
		return buckets
	}

	tests := []struct {
		name      string
		values    []float64
		ok        bool
		direction string
		change    float64
	}{
		{"increasing", []float64{10, 10, 20, 20}, true, "increasing", 1},
		{"decreasing", []float64{100, 100, 50, 50}, true, "decreasing", -0.5},
		{"stable within threshold", []float64{100, 100, 103, 103}, true, "stable", 0.03},
		{"threshold itself is stable", []float64{100, 105}, true, "stable", 0.05},
		{"zero first half", []float64{0, 0, 4, 6}, true, "increasing", 1},
		{"all zero", []float64{0, 0, 0}, true, "stable", 0},
		{"odd length", []float64{10, 20, 30}, true, "increasing", 1.5},
		{"single day", []float64{42}, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data InsightData
			ok := trendRule(insightInput{daily: daily(tt.values...)}, RuleDef{}, &data)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if data.Direction != tt.direction {
				t.Errorf("expected %s, got %s", tt.direction, data.Direction)
			}
			if math.Abs(data.Change-tt.change) > 1e-9 {
				t.Errorf("expected change %v, got %v", tt.change, data.Change)
			}
		})
	}
}
