// internal/service/ingest/parser.go

package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mediaintel/internal/domain/mention"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Common errors
var (
	ErrEmpty         = errors.New("file contains no data rows")
	ErrMissingColumn = errors.New("required column missing")
	ErrUnsupported   = errors.New("unsupported file format")
	ErrTooManyRows   = errors.New("file exceeds the row limit")
	ErrUnreadable    = errors.New("file could not be read")
)

var zipMagic = []byte("PK\x03\x04")

// preferredSheets are picked over the first sheet when a workbook has them
var preferredSheets = []string{"data", "mentions"}

// ParserConfig contains configuration for the upload parser
type ParserConfig struct {
	// MaxRows caps the number of data rows; zero means unlimited
	MaxRows int
}

// Parser reads CSV and Excel exports into cleaned mentions
type Parser struct {
	config ParserConfig
}

// NewParser creates a new parser
func NewParser(config ParserConfig) *Parser {
	return &Parser{config: config}
}

// Parse detects the file format, reads the table and cleans every row
func (p *Parser) Parse(name string, r io.Reader) ([]mention.Mention, mention.IngestReport, error) {
	var report mention.IngestReport

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, report, fmt.Errorf("error reading upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, report, ErrEmpty
	}

	format, err := detectFormat(name, data)
	if err != nil {
		return nil, report, err
	}
	report.Format = format

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, report.Sheet, err = readWorkbook(data)
	default:
		rows, report.Encoding, report.Delimiter, err = readCSV(data)
	}
	if err != nil {
		return nil, report, err
	}

	mentions, err := p.clean(rows, format == FormatXLSX, &report)
	if err != nil {
		return nil, report, err
	}

	log.WithFields(log.Fields{
		"file":    name,
		"format":  report.Format,
		"read":    report.RowsRead,
		"kept":    report.RowsKept,
		"dropped": report.RowsDropped,
	}).Info("Parsed upload")

	return mentions, report, nil
}

// detectFormat picks a reader from the extension, falling back to content sniffing
func detectFormat(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		if bytes.HasPrefix(data, zipMagic) {
			return FormatXLSX, nil
		}
		return "", fmt.Errorf("%w: %s is not an OOXML workbook", ErrUnsupported, filepath.Base(name))
	case ".xls":
		if bytes.HasPrefix(data, zipMagic) {
			return FormatXLSX, nil
		}
		return "", fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupported)
	}

	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX, nil
	}
	if !utf8.Valid(data[:min(len(data), 4096)]) && bytes.IndexByte(data, 0) >= 0 && !hasUTF16BOM(data) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	return FormatCSV, nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// decodeText converts the upload into UTF-8 and names the source encoding
func decodeText(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], "utf-8", nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		decoded, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decoding utf-16: %v", ErrUnreadable, err)
		}
		return decoded, "utf-16le", nil
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		decoded, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decoding utf-16: %v", ErrUnreadable, err)
		}
		return decoded, "utf-16be", nil
	case utf8.Valid(data):
		return data, "utf-8", nil
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decoding windows-1252: %v", ErrUnreadable, err)
	}
	return decoded, "windows-1252", nil
}

// sniffDelimiter picks the candidate appearing most often outside quotes on the header line
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	best, bestCount := ',', 0
	for _, candidate := range []rune{',', ';', '\t', '|'} {
		count := 0
		inQuotes := false
		for _, r := range string(line) {
			switch {
			case r == '"':
				inQuotes = !inQuotes
			case r == candidate && !inQuotes:
				count++
			}
		}
		if count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

func readCSV(data []byte) ([][]string, string, string, error) {
	text, encoding, err := decodeText(data)
	if err != nil {
		return nil, "", "", err
	}

	delimiter := sniffDelimiter(text)
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: parsing csv: %v", ErrUnreadable, err)
	}

	return rows, encoding, string(delimiter), nil
}

func readWorkbook(data []byte) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: opening workbook: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", ErrEmpty
	}

	ordered := make([]string, 0, len(sheets))
	for _, preferred := range preferredSheets {
		for _, s := range sheets {
			if strings.EqualFold(s, preferred) {
				ordered = append(ordered, s)
			}
		}
	}
	ordered = append(ordered, sheets...)

	for _, sheet := range ordered {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, "", fmt.Errorf("%w: reading sheet %s: %v", ErrUnreadable, sheet, err)
		}
		if len(rows) > 1 {
			return rows, sheet, nil
		}
	}

	return nil, "", ErrEmpty
}

// clean turns raw rows into mentions: coerce types, fill categorical gaps and
// drop rows whose date cannot be parsed
func (p *Parser) clean(rows [][]string, allowSerial bool, report *mention.IngestReport) ([]mention.Mention, error) {
	headerAt := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmpty
	}

	cols, unrecognized := resolveColumns(rows[headerAt])
	report.Columns = cols.present()
	report.Unrecognized = unrecognized
	report.Missing = cols.missing()

	if !cols.has(mention.ColumnDate) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, mention.ColumnDate)
	}
	for _, col := range []string{mention.ColumnPlatform, mention.ColumnSentiment, mention.ColumnEngagements} {
		if !cols.has(col) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("column %s not found; its charts will show defaults", col))
		}
	}

	var (
		mentions         []mention.Mention
		badEngagements   int
		badReach         int
		badCoordinates   int
		hasCoordinateCol = cols.has(mention.ColumnLatitude) && cols.has(mention.ColumnLongitude)
	)

	for _, row := range rows[headerAt+1:] {
		if isBlank(row) {
			continue
		}
		report.RowsRead++
		if p.config.MaxRows > 0 && report.RowsRead > p.config.MaxRows {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyRows, p.config.MaxRows)
		}

		date, ok := parseDate(cols.cell(row, mention.ColumnDate), allowSerial)
		if !ok {
			report.RowsDropped++
			continue
		}

		m := mention.Mention{
			Date:      date,
			Headline:  strings.Join(strings.Fields(cols.cell(row, mention.ColumnHeadline)), " "),
			Platform:  normalizeCategory(cols.cell(row, mention.ColumnPlatform), true),
			Sentiment: normalizeSentiment(cols.cell(row, mention.ColumnSentiment)),
			Location:  normalizeCategory(cols.cell(row, mention.ColumnLocation), false),
			MediaType: normalizeCategory(cols.cell(row, mention.ColumnMediaType), true),
			Source:    normalizeCategory(cols.cell(row, mention.ColumnSource), false),
		}

		if raw := cols.cell(row, mention.ColumnEngagements); raw != "" {
			if v, ok := parseNumber(raw); ok {
				m.Engagements = v
			} else {
				badEngagements++
			}
		}
		if raw := cols.cell(row, mention.ColumnReach); raw != "" {
			if v, ok := parseNumber(raw); ok {
				m.Reach = v
			} else {
				badReach++
			}
		}
		if hasCoordinateCol {
			lat, lng := cols.cell(row, mention.ColumnLatitude), cols.cell(row, mention.ColumnLongitude)
			if lat != "" || lng != "" {
				m.Latitude, m.Longitude = parseCoordinates(lat, lng)
				if m.Latitude == nil {
					badCoordinates++
				}
			}
		}

		mentions = append(mentions, m)
	}

	report.RowsKept = len(mentions)
	if report.RowsDropped > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d rows dropped because the date could not be parsed", report.RowsDropped))
	}
	if badEngagements > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d engagement values could not be parsed and were set to 0", badEngagements))
	}
	if badReach > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d reach values could not be parsed and were set to 0", badReach))
	}
	if badCoordinates > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d rows had invalid coordinates", badCoordinates))
	}

	if len(mentions) == 0 {
		return nil, ErrEmpty
	}

	return mentions, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
