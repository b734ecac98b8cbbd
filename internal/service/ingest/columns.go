package ingest

import (
	"strings"
	"unicode"

	"mediaintel/internal/domain/mention"
)

// aliases maps normalized header names to canonical columns
var aliases = map[string]string{
	"date":             mention.ColumnDate,
	"published_date":   mention.ColumnDate,
	"publish_date":     mention.ColumnDate,
	"published":        mention.ColumnDate,
	"tanggal":          mention.ColumnDate,
	"timestamp":        mention.ColumnDate,
	"created_at":       mention.ColumnDate,
	"datetime":         mention.ColumnDate,
	"headline":         mention.ColumnHeadline,
	"title":            mention.ColumnHeadline,
	"judul":            mention.ColumnHeadline,
	"platform":         mention.ColumnPlatform,
	"channel":          mention.ColumnPlatform,
	"network":          mention.ColumnPlatform,
	"sentiment":        mention.ColumnSentiment,
	"sentimen":         mention.ColumnSentiment,
	"tone":             mention.ColumnSentiment,
	"location":         mention.ColumnLocation,
	"lokasi":           mention.ColumnLocation,
	"city":             mention.ColumnLocation,
	"region":           mention.ColumnLocation,
	"country":          mention.ColumnLocation,
	"media_type":       mention.ColumnMediaType,
	"mediatype":        mention.ColumnMediaType,
	"type":             mention.ColumnMediaType,
	"content_type":     mention.ColumnMediaType,
	"format":           mention.ColumnMediaType,
	"source":           mention.ColumnSource,
	"media":            mention.ColumnSource,
	"outlet":           mention.ColumnSource,
	"publisher":        mention.ColumnSource,
	"author":           mention.ColumnSource,
	"engagements":      mention.ColumnEngagements,
	"engagement":       mention.ColumnEngagements,
	"interactions":     mention.ColumnEngagements,
	"total_engagement": mention.ColumnEngagements,
	"reach":            mention.ColumnReach,
	"impressions":      mention.ColumnReach,
	"audience":         mention.ColumnReach,
	"views":            mention.ColumnReach,
	"latitude":         mention.ColumnLatitude,
	"lat":              mention.ColumnLatitude,
	"longitude":        mention.ColumnLongitude,
	"lon":              mention.ColumnLongitude,
	"lng":              mention.ColumnLongitude,
	"long":             mention.ColumnLongitude,
}

// normalizeHeader lowercases a header and collapses separators into underscores
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	h = strings.ToLower(h)

	var b strings.Builder
	pendingSep := false
	for _, r := range h {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// columnIndex maps canonical columns to their position in a row
type columnIndex map[string]int

// resolveColumns matches header cells against the alias table.
// The first header matching a canonical column wins.
func resolveColumns(header []string) (columnIndex, []string) {
	index := make(columnIndex)
	var unrecognized []string

	for i, h := range header {
		name := normalizeHeader(h)
		if name == "" {
			continue
		}
		canonical, ok := aliases[name]
		if !ok {
			unrecognized = append(unrecognized, strings.TrimSpace(h))
			continue
		}
		if _, taken := index[canonical]; taken {
			unrecognized = append(unrecognized, strings.TrimSpace(h))
			continue
		}
		index[canonical] = i
	}

	return index, unrecognized
}

// cell returns the trimmed value of a canonical column, or "" when absent
func (c columnIndex) cell(row []string, column string) string {
	i, ok := c[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) has(column string) bool {
	_, ok := c[column]
	return ok
}

// present lists the recognized canonical columns in canonical order
func (c columnIndex) present() []string {
	var cols []string
	for _, col := range mention.Columns {
		if c.has(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// missing lists the canonical columns absent from the header
func (c columnIndex) missing() []string {
	var cols []string
	for _, col := range mention.Columns {
		if !c.has(col) {
			cols = append(cols, col)
		}
	}
	return cols
}
