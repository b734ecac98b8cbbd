package mention

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used for filters and daily series
const DateLayout = "2006-01-02"

// Sentiment labels after normalization
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// Unknown is used for empty categorical values
const Unknown = "Unknown"

// Canonical column names
const (
	ColumnDate        = "date"
	ColumnHeadline    = "headline"
	ColumnPlatform    = "platform"
	ColumnSentiment   = "sentiment"
	ColumnLocation    = "location"
	ColumnMediaType   = "media_type"
	ColumnSource      = "source"
	ColumnEngagements = "engagements"
	ColumnReach       = "reach"
	ColumnLatitude    = "latitude"
	ColumnLongitude   = "longitude"
)

// Columns lists every canonical column in display order
var Columns = []string{
	ColumnDate,
	ColumnHeadline,
	ColumnPlatform,
	ColumnSentiment,
	ColumnLocation,
	ColumnMediaType,
	ColumnSource,
	ColumnEngagements,
	ColumnReach,
	ColumnLatitude,
	ColumnLongitude,
}

// Common errors
var (
	ErrNotFound = errors.New("dataset not found")
)

// Mention is one cleaned row of an uploaded media-monitoring export
type Mention struct {
	Date        time.Time `json:"date"`
	Headline    string    `json:"headline,omitempty"`
	Platform    string    `json:"platform"`
	Sentiment   string    `json:"sentiment"`
	Location    string    `json:"location"`
	MediaType   string    `json:"media_type"`
	Source      string    `json:"source"`
	Engagements float64   `json:"engagements"`
	Reach       float64   `json:"reach"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the mention is geotagged
func (m Mention) HasCoordinates() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Day returns the mention date formatted as a calendar day
func (m Mention) Day() string {
	return m.Date.Format(DateLayout)
}

// Value returns the categorical or numeric value of a canonical column as text
func (m Mention) Value(column string) string {
	switch column {
	case ColumnDate:
		return m.Day()
	case ColumnHeadline:
		return m.Headline
	case ColumnPlatform:
		return m.Platform
	case ColumnSentiment:
		return m.Sentiment
	case ColumnLocation:
		return m.Location
	case ColumnMediaType:
		return m.MediaType
	case ColumnSource:
		return m.Source
	}
	return ""
}

// Measure returns a numeric column value
func (m Mention) Measure(column string) float64 {
	switch column {
	case ColumnEngagements:
		return m.Engagements
	case ColumnReach:
		return m.Reach
	}
	return 0
}

// DatasetInfo describes an uploaded dataset without its rows
type DatasetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	RowCount   int       `json:"row_count"`
	Columns    []string  `json:"columns"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HasColumn reports whether the source file carried the canonical column
func (d DatasetInfo) HasColumn(column string) bool {
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Dataset is an uploaded dataset with its cleaned rows
type Dataset struct {
	DatasetInfo
	Mentions []Mention `json:"mentions"`
}

// Filter holds the sidebar selections applied to a dataset.
// Empty slices select everything; From and To are inclusive days.
type Filter struct {
	Platforms  []string   `json:"platforms,omitempty"`
	Sentiments []string   `json:"sentiments,omitempty"`
	MediaTypes []string   `json:"media_types,omitempty"`
	Locations  []string   `json:"locations,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// IsEmpty reports whether the filter selects every row
func (f Filter) IsEmpty() bool {
	return len(f.Platforms) == 0 &&
		len(f.Sentiments) == 0 &&
		len(f.MediaTypes) == 0 &&
		len(f.Locations) == 0 &&
		f.From == nil &&
		f.To == nil
}

// Key returns a stable string form of the filter
func (f Filter) Key() string {
	var b strings.Builder
	write := func(name string, values []string) {
		if len(values) == 0 {
			return
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, ","))
		b.WriteByte(';')
	}
	write(ColumnPlatform, f.Platforms)
	write(ColumnSentiment, f.Sentiments)
	write(ColumnMediaType, f.MediaTypes)
	write(ColumnLocation, f.Locations)
	if f.From != nil {
		write("from", []string{f.From.Format(DateLayout)})
	}
	if f.To != nil {
		write("to", []string{f.To.Format(DateLayout)})
	}
	return b.String()
}

// IngestReport describes what happened while reading and cleaning an upload
type IngestReport struct {
	Format       string   `json:"format"`
	Encoding     string   `json:"encoding,omitempty"`
	Sheet        string   `json:"sheet,omitempty"`
	Delimiter    string   `json:"delimiter,omitempty"`
	RowsRead     int      `json:"rows_read"`
	RowsKept     int      `json:"rows_kept"`
	RowsDropped  int      `json:"rows_dropped"`
	Columns      []string `json:"columns"`
	Unrecognized []string `json:"unrecognized,omitempty"`
	Missing      []string `json:"missing,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}
