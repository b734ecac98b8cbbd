package analysis

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"mediaintel/internal/domain/dashboard"
)

// NoDataInsight replaces the insights of a chart with no rows
const NoDataInsight = "No data available for the current filters."

// trendThreshold is the relative change below which a series is stable
const trendThreshold = 0.05

// insightInput is the aggregated data of one chart. Buckets are categorical
// totals sorted largest first; Daily is the per-day total in date order.
type insightInput struct {
	buckets []Bucket
	daily   []Bucket
	points  []dashboard.Point
	extent  *dashboard.Extent
}

// InsightData is the value an insight template is executed with
type InsightData struct {
	Chart     string
	Param     string
	Label     string
	Value     float64
	Share     float64
	Total     float64
	Count     int
	Labels    []string
	Direction string
	Change    float64
	Mean      float64
	StdDev    float64
	Lat       float64
	Lng       float64
}

type ruleFunc func(in insightInput, r RuleDef, data *InsightData) bool

var rules = map[string]ruleFunc{
	"leader":  leaderRule,
	"laggard": laggardRule,
	"share":   shareRule,
	"top_n":   topNRule,
	"peak":    peakRule,
	"trough":  troughRule,
	"trend":   trendRule,
	"average": averageRule,
	"spread":  spreadRule,
	"geo":     geoRule,
}

var templateFuncs = template.FuncMap{
	"number":  formatNumber,
	"percent": formatPercent,
	"join":    joinLabels,
	"title":   titleCase,
	"lower":   strings.ToLower,
}

// evaluate renders every insight of a chart whose rule applies to the data
func evaluate(def ChartDef, in insightInput) []string {
	insights := []string{}
	total := sumBuckets(in.buckets)

	for _, r := range def.Insights {
		apply, ok := rules[r.Rule]
		if !ok || r.tmpl == nil {
			continue
		}

		data := InsightData{Chart: def.Title, Param: r.Param, Total: total}
		if !apply(in, r, &data) {
			continue
		}

		var b strings.Builder
		if err := r.tmpl.Execute(&b, data); err != nil {
			log.WithFields(log.Fields{
				"chart": def.ID,
				"rule":  r.Rule,
			}).Printf("Error rendering insight: %v", err)
			continue
		}
		insights = append(insights, b.String())
	}

	return insights
}

func leaderRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.buckets) == 0 || data.Total == 0 {
		return false
	}
	b := in.buckets[0]
	data.Label, data.Value, data.Share = b.Label, b.Value, b.Share
	return true
}

func laggardRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.buckets) < 2 || data.Total == 0 {
		return false
	}
	b := in.buckets[len(in.buckets)-1]
	data.Label, data.Value, data.Share = b.Label, b.Value, b.Share
	return true
}

func shareRule(in insightInput, r RuleDef, data *InsightData) bool {
	if r.Param == "" || data.Total == 0 {
		return false
	}
	data.Label = r.Param
	for _, b := range in.buckets {
		if strings.EqualFold(b.Label, r.Param) {
			data.Label, data.Value, data.Share = b.Label, b.Value, b.Share
			break
		}
	}
	return true
}

func topNRule(in insightInput, r RuleDef, data *InsightData) bool {
	if len(in.buckets) == 0 {
		return false
	}
	n := r.Limit
	if n <= 0 {
		n = 3
	}
	for _, b := range TopN(in.buckets, n) {
		data.Labels = append(data.Labels, b.Label)
		data.Value += b.Value
	}
	data.Count = len(data.Labels)
	if data.Total != 0 {
		data.Share = data.Value / data.Total
	}
	return true
}

func peakRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.daily) == 0 {
		return false
	}
	best := in.daily[0]
	for _, b := range in.daily[1:] {
		if b.Value > best.Value {
			best = b
		}
	}
	if best.Value <= 0 {
		return false
	}
	data.Label, data.Value, data.Share = best.Label, best.Value, best.Share
	return true
}

func troughRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.daily) < 2 {
		return false
	}
	worst := in.daily[0]
	for _, b := range in.daily[1:] {
		if b.Value < worst.Value {
			worst = b
		}
	}
	data.Label, data.Value, data.Share = worst.Label, worst.Value, worst.Share
	return true
}

// trendRule compares the mean of the first half of the days with the second
func trendRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.daily) < 2 {
		return false
	}
	values := bucketValues(in.daily)
	half := len(values) / 2
	first := stat.Mean(values[:half], nil)
	second := stat.Mean(values[half:], nil)

	switch {
	case first == 0 && second == 0:
		data.Change = 0
	case first == 0:
		data.Change = 1
	default:
		data.Change = (second - first) / first
	}

	switch {
	case data.Change > trendThreshold:
		data.Direction = "increasing"
	case data.Change < -trendThreshold:
		data.Direction = "decreasing"
	default:
		data.Direction = "stable"
	}
	data.Mean = stat.Mean(values, nil)
	return true
}

func averageRule(in insightInput, _ RuleDef, data *InsightData) bool {
	source := in.daily
	if len(source) == 0 {
		source = in.buckets
	}
	if len(source) == 0 {
		return false
	}
	data.Mean, data.StdDev = meanStdDev(bucketValues(source))
	data.Count = len(source)
	return true
}

func spreadRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.buckets) == 0 {
		return false
	}
	data.Count = len(in.buckets)
	return true
}

func geoRule(in insightInput, _ RuleDef, data *InsightData) bool {
	if len(in.points) == 0 || in.extent == nil {
		return false
	}
	data.Count = len(in.points)
	data.Lat = in.extent.CenterLat
	data.Lng = in.extent.CenterLng
	return true
}

// meanStdDev returns the sample mean and standard deviation, with a zero
// deviation for fewer than two values
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

func bucketValues(buckets []Bucket) []float64 {
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.Value
	}
	return values
}

func sumBuckets(buckets []Bucket) float64 {
	var total float64
	for _, b := range buckets {
		total += b.Value
	}
	return total
}

func formatNumber(v float64) string {
	return humanize.Commaf(math.Round(v*100) / 100)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
