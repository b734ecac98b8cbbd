// internal/service/analysis/aggregate.go

package analysis

import (
	"sort"
	"time"

	"mediaintel/internal/domain/mention"
)

// Measures
const (
	MeasureCount = "count"
	MeasureSum   = "sum"
)

// Bucket is one aggregated group
type Bucket struct {
	Label string
	Value float64
	Share float64
}

// CountBy counts mentions per value of a column, largest first.
// Rows with an empty value are skipped.
func CountBy(mentions []mention.Mention, column string) []Bucket {
	return groupBy(mentions, column, "")
}

// SumBy sums a numeric column per value of a categorical column, largest first
func SumBy(mentions []mention.Mention, column, value string) []Bucket {
	return groupBy(mentions, column, value)
}

func groupBy(mentions []mention.Mention, column, value string) []Bucket {
	totals := make(map[string]float64)
	for _, m := range mentions {
		label := m.Value(column)
		if label == "" {
			continue
		}
		if value == "" {
			totals[label]++
		} else {
			totals[label] += m.Measure(value)
		}
	}

	buckets := make([]Bucket, 0, len(totals))
	for label, v := range totals {
		buckets = append(buckets, Bucket{Label: label, Value: v})
	}
	sortBuckets(buckets)
	return withShares(buckets)
}

// sortBuckets orders by value descending, then label ascending
func sortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Value != buckets[j].Value {
			return buckets[i].Value > buckets[j].Value
		}
		return buckets[i].Label < buckets[j].Label
	})
}

// withShares sets each bucket's share of the total
func withShares(buckets []Bucket) []Bucket {
	var total float64
	for _, b := range buckets {
		total += b.Value
	}
	for i := range buckets {
		if total != 0 {
			buckets[i].Share = buckets[i].Value / total
		} else {
			buckets[i].Share = 0
		}
	}
	return buckets
}

// TopN keeps the first n buckets. Shares are left relative to the full total.
func TopN(buckets []Bucket, n int) []Bucket {
	if n <= 0 || len(buckets) <= n {
		return buckets
	}
	return buckets[:n]
}

// Days returns every calendar day between the first and last mention
func Days(mentions []mention.Mention) []string {
	if len(mentions) == 0 {
		return nil
	}

	first, last := mentions[0].Date, mentions[0].Date
	for _, m := range mentions[1:] {
		if m.Date.Before(first) {
			first = m.Date
		}
		if m.Date.After(last) {
			last = m.Date
		}
	}

	var days []string
	for d := first; !d.After(last); d = d.Add(24 * time.Hour) {
		days = append(days, d.Format(mention.DateLayout))
	}
	return days
}

// DailySum aggregates per day in date order, zero-filling days without mentions.
// An empty value counts mentions.
func DailySum(mentions []mention.Mention, value string) []Bucket {
	totals := make(map[string]float64)
	for _, m := range mentions {
		if value == "" {
			totals[m.Day()]++
		} else {
			totals[m.Day()] += m.Measure(value)
		}
	}

	days := Days(mentions)
	buckets := make([]Bucket, len(days))
	for i, d := range days {
		buckets[i] = Bucket{Label: d, Value: totals[d]}
	}
	return withShares(buckets)
}

// DailyCountBy aggregates per day and per value of a column. It returns the
// ordered days, the series labels ordered by total, and one value slice per label.
func DailyCountBy(mentions []mention.Mention, column, value string) ([]string, []Bucket, map[string][]float64) {
	days := Days(mentions)
	position := make(map[string]int, len(days))
	for i, d := range days {
		position[d] = i
	}

	series := make(map[string][]float64)
	for _, m := range mentions {
		label := m.Value(column)
		if label == "" {
			continue
		}
		values, ok := series[label]
		if !ok {
			values = make([]float64, len(days))
			series[label] = values
		}
		if value == "" {
			values[position[m.Day()]]++
		} else {
			values[position[m.Day()]] += m.Measure(value)
		}
	}

	totals := make([]Bucket, 0, len(series))
	for label, values := range series {
		var sum float64
		for _, v := range values {
			sum += v
		}
		totals = append(totals, Bucket{Label: label, Value: sum})
	}
	sortBuckets(totals)

	return days, withShares(totals), series
}
