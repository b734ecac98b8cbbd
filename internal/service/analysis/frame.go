package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"mediaintel/internal/domain/mention"
)

const indexColumn = "idx"

// filterColumns are the categorical columns the sidebar can filter on
var filterColumns = []string{
	mention.ColumnPlatform,
	mention.ColumnSentiment,
	mention.ColumnMediaType,
	mention.ColumnLocation,
}

// Frame is a filtered view over a dataset's mentions. The underlying
// dataframe holds lowercased filter keys and a row index into mentions.
type Frame struct {
	df       dataframe.DataFrame
	mentions []mention.Mention
	rows     []int
}

// NewFrame builds an unfiltered frame
func NewFrame(mentions []mention.Mention) *Frame {
	rows := make([]int, len(mentions))
	for i := range rows {
		rows[i] = i
	}

	f := &Frame{mentions: mentions, rows: rows}
	if len(mentions) == 0 {
		return f
	}

	header := append([]string{indexColumn, mention.ColumnDate}, filterColumns...)
	records := make([][]string, 0, len(mentions)+1)
	records = append(records, header)
	for i, m := range mentions {
		record := []string{strconv.Itoa(i), m.Day()}
		for _, col := range filterColumns {
			record = append(record, filterKey(m.Value(col)))
		}
		records = append(records, record)
	}

	f.df = dataframe.LoadRecords(
		records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{indexColumn: series.Int}),
		dataframe.NaNValues([]string{}),
	)

	return f
}

// Len returns the number of rows in the frame
func (f *Frame) Len() int {
	return len(f.rows)
}

// Mentions returns the rows of the frame in upload order
func (f *Frame) Mentions() []mention.Mention {
	out := make([]mention.Mention, len(f.rows))
	for i, idx := range f.rows {
		out[i] = f.mentions[idx]
	}
	return out
}

// Apply returns the subset of the frame selected by the filter. Values within
// one field are alternatives; fields are combined with AND.
func (f *Frame) Apply(filter mention.Filter) (*Frame, error) {
	if filter.IsEmpty() || f.Len() == 0 {
		return f, nil
	}

	selections := map[string][]string{
		mention.ColumnPlatform:  filter.Platforms,
		mention.ColumnSentiment: filter.Sentiments,
		mention.ColumnMediaType: filter.MediaTypes,
		mention.ColumnLocation:  filter.Locations,
	}

	df := f.df
	for _, col := range filterColumns {
		values := filterKeys(selections[col])
		if len(values) == 0 || df.Nrow() == 0 {
			continue
		}
		df = df.Filter(dataframe.F{Colname: col, Comparator: series.In, Comparando: values})
	}

	if filter.From != nil && df.Nrow() > 0 {
		df = df.Filter(dataframe.F{
			Colname:    mention.ColumnDate,
			Comparator: series.GreaterEq,
			Comparando: filter.From.Format(mention.DateLayout),
		})
	}
	if filter.To != nil && df.Nrow() > 0 {
		df = df.Filter(dataframe.F{
			Colname:    mention.ColumnDate,
			Comparator: series.LessEq,
			Comparando: filter.To.Format(mention.DateLayout),
		})
	}

	if df.Err != nil {
		return nil, fmt.Errorf("error filtering frame: %w", df.Err)
	}

	rows := []int{}
	if df.Nrow() > 0 {
		var err error
		rows, err = df.Col(indexColumn).Int()
		if err != nil {
			return nil, fmt.Errorf("error reading row index: %w", err)
		}
	}

	return &Frame{df: df, mentions: f.mentions, rows: rows}, nil
}

func filterKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func filterKeys(values []string) []string {
	var keys []string
	for _, v := range values {
		if k := filterKey(v); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
