// internal/service/render/workbook.go

package render

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"mediaintel/internal/domain/dashboard"
	"mediaintel/internal/domain/mention"
)

// Workbook sheet names
const (
	SheetSummary         = "Summary"
	SheetMentions        = "Mentions"
	SheetCharts          = "Charts"
	SheetInsights        = "Insights"
	SheetRecommendations = "Recommendations"
)

// maxMentionRows is the number of data rows that fit below the Mentions header
var maxMentionRows = excelize.TotalRows - 1

// Workbook writes the dashboard and its filtered mentions as an xlsx file.
// Mentions beyond the sheet row limit are left out and noted on the Summary sheet.
func Workbook(d *dashboard.Dashboard, mentions []mention.Mention, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("error naming summary sheet: %w", err)
	}
	for _, name := range []string{SheetMentions, SheetCharts, SheetInsights, SheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("error creating sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	s := d.Summary
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Dataset", d.DatasetID},
		{"Total mentions", s.TotalMentions},
		{"Total engagements", s.TotalEngagements},
		{"Total reach", s.TotalReach},
		{"Average engagement", s.AverageEngagement},
		{"Engagement std dev", s.EngagementStdDev},
		{"Platforms", s.Platforms},
		{"Sources", s.Sources},
		{"Positive share", s.PositiveShare},
		{"Negative share", s.NegativeShare},
	}
	if !s.From.IsZero() {
		summary = append(summary,
			[]interface{}{"From", s.From.Format(mention.DateLayout)},
			[]interface{}{"To", s.To.Format(mention.DateLayout)},
		)
	}
	if key := d.Filter.Key(); key != "" {
		summary = append(summary, []interface{}{"Filter", key})
	}
	if len(mentions) > maxMentionRows {
		note := fmt.Sprintf("first %d of %d rows", maxMentionRows, len(mentions))
		summary = append(summary, []interface{}{"Mentions sheet", note})
		log.WithFields(log.Fields{
			"dataset": d.DatasetID,
			"rows":    len(mentions),
			"limit":   maxMentionRows,
		}).Warn("Mentions sheet truncated")
		mentions = mentions[:maxMentionRows]
	}

	mentionRows := [][]interface{}{{
		"Date", "Headline", "Platform", "Sentiment", "Location", "Media Type",
		"Source", "Engagements", "Reach", "Latitude", "Longitude",
	}}
	for _, m := range mentions {
		var lat, lng interface{}
		if m.HasCoordinates() {
			lat, lng = *m.Latitude, *m.Longitude
		}
		mentionRows = append(mentionRows, []interface{}{
			m.Day(), m.Headline, m.Platform, m.Sentiment, m.Location, m.MediaType,
			m.Source, m.Engagements, m.Reach, lat, lng,
		})
	}

	chartRows := [][]interface{}{{"Chart", "Kind", "Series", "Label", "Value", "Share"}}
	insightRows := [][]interface{}{{"Chart", "Insight"}}
	for _, c := range d.Charts {
		for _, series := range c.Series {
			for _, pt := range series.Points {
				label := pt.Label
				value := pt.Value
				if c.Kind == dashboard.KindScatter {
					label = fmt.Sprintf("%s (%.4f, %.4f)", pt.Label, pt.Y, pt.X)
				}
				chartRows = append(chartRows, []interface{}{c.Title, string(c.Kind), series.Name, label, value, pt.Share})
			}
		}
		for _, insight := range c.Insights {
			insightRows = append(insightRows, []interface{}{c.Title, insight})
		}
	}

	recommendationRows := [][]interface{}{{"#", "Recommendation"}}
	for i, r := range d.Recommendations {
		recommendationRows = append(recommendationRows, []interface{}{i + 1, r})
	}

	sheets := []struct {
		name  string
		rows  [][]interface{}
		width float64
	}{
		{SheetSummary, summary, 22},
		{SheetMentions, mentionRows, 16},
		{SheetCharts, chartRows, 20},
		{SheetInsights, insightRows, 40},
		{SheetRecommendations, recommendationRows, 60},
	}
	for _, sheet := range sheets {
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet.name, 1, 1, header); err != nil {
			return fmt.Errorf("error styling %s: %w", sheet.name, err)
		}
		if err := f.SetColWidth(sheet.name, "A", "K", sheet.width); err != nil {
			return fmt.Errorf("error sizing %s: %w", sheet.name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("error writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
