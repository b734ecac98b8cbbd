package dashboard

import (
	"time"

	"mediaintel/internal/domain/mention"
)

// ChartKind identifies how a chart is drawn
type ChartKind string

const (
	KindPie         ChartKind = "pie"
	KindBar         ChartKind = "bar"
	KindLine        ChartKind = "line"
	KindStackedLine ChartKind = "stacked_line"
	KindScatter     ChartKind = "scatter"
)

// Point is one value of a chart series. X and Y are set for scatter charts.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Share float64 `json:"share,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
}

// Series is a named list of points
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Extent is the geographic bounding box of a scatter chart
type Extent struct {
	MinLatitude  float64 `json:"min_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
	CenterLat    float64 `json:"center_latitude"`
	CenterLng    float64 `json:"center_longitude"`
}

// Chart is a rendered chart specification with its insight sentences
type Chart struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Kind     ChartKind `json:"kind"`
	Page     string    `json:"page"`
	XLabel   string    `json:"x_label,omitempty"`
	YLabel   string    `json:"y_label,omitempty"`
	Series   []Series  `json:"series"`
	Insights []string  `json:"insights"`
	Empty    bool      `json:"empty"`
	Extent   *Extent   `json:"extent,omitempty"`
}

// Summary holds headline figures for the filtered frame
type Summary struct {
	TotalMentions     int       `json:"total_mentions"`
	TotalEngagements  float64   `json:"total_engagements"`
	TotalReach        float64   `json:"total_reach"`
	AverageEngagement float64   `json:"average_engagement"`
	EngagementStdDev  float64   `json:"engagement_std_dev"`
	From              time.Time `json:"from,omitempty"`
	To                time.Time `json:"to,omitempty"`
	Platforms         int       `json:"platforms"`
	Sources           int       `json:"sources"`
	PositiveShare     float64   `json:"positive_share"`
	NegativeShare     float64   `json:"negative_share"`
}

// Options are the selectable filter values of an unfiltered dataset
type Options struct {
	Platforms  []string  `json:"platforms"`
	Sentiments []string  `json:"sentiments"`
	MediaTypes []string  `json:"media_types"`
	Locations  []string  `json:"locations"`
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
}

// Dashboard is the full analysis of a dataset under a filter
type Dashboard struct {
	DatasetID       string         `json:"dataset_id"`
	Filter          mention.Filter `json:"filter"`
	Summary         Summary        `json:"summary"`
	Options         Options        `json:"options"`
	Charts          []Chart        `json:"charts"`
	Recommendations []string       `json:"recommendations"`
}

// Chart returns the chart with the given id
func (d *Dashboard) Chart(id string) (*Chart, bool) {
	for i := range d.Charts {
		if d.Charts[i].ID == id {
			return &d.Charts[i], true
		}
	}
	return nil, false
}

// Page describes one navigation page and the charts it shows
type Page struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Charts []string `json:"charts,omitempty" yaml:"-"`
}
