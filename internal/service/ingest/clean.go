package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaintel/internal/domain/mention"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"01-02-06",
}

// Excel serials between 1900-01-01 and 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var titleCaser = cases.Title(language.Und)

// parseDate coerces a cell into a calendar day. Serial numbers are accepted
// only for workbook input.
func parseDate(s string, allowSerial bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}

	if allowSerial {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return day(t), true
			}
		}
	}

	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseNumber coerces a cell into a number. Thousands separators and
// k/m/b suffixes are accepted.
func parseNumber(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "", "_", "", "\u00a0", "").Replace(s)
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier = 1e3
	case strings.HasSuffix(s, "m"):
		multiplier = 1e6
	case strings.HasSuffix(s, "b"):
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// 1.234,5
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.5
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * multiplier, true
}

// normalizeSentiment maps sentiment labels onto positive/negative/neutral
func normalizeSentiment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return mention.SentimentUnknown
	case "positive", "pos", "positif", "+", "1":
		return mention.SentimentPositive
	case "negative", "neg", "negatif", "-", "-1":
		return mention.SentimentNegative
	case "neutral", "netral", "neu", "mixed", "0":
		return mention.SentimentNeutral
	}
	return s
}

// normalizeCategory returns a trimmed value or Unknown. Titled values are
// title-cased so "twitter" and "Twitter" group together.
func normalizeCategory(s string, titled bool) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return mention.Unknown
	}
	if titled {
		return titleCaser.String(s)
	}
	return s
}

// parseCoordinates returns a validated latitude/longitude pair
func parseCoordinates(latStr, lngStr string) (*float64, *float64) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 || math.IsNaN(lat) {
		return nil, nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 || math.IsNaN(lng) {
		return nil, nil
	}
	return &lat, &lng
}
