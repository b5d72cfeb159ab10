// Package readers loads the raw instrument and spreadsheet exports of a
// load run into string tables.
package readers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fermload/domain/core"
	"fermload/domain/table"
	"fermload/internal"
	"fermload/internal/errors"

	"github.com/xuri/excelize/v2"
)

// TabularReader handles reading Excel and CSV files
type TabularReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	log      *internal.Logger
}

// NewTabularReader creates a reader; the type follows the file extension
func NewTabularReader(filePath string) *TabularReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	return &TabularReader{filePath: filePath, fileType: fileType, log: internal.DefaultLogger}
}

// WithSheet selects a worksheet by name instead of the first one
func (r *TabularReader) WithSheet(name string) *TabularReader {
	r.sheet = name
	return r
}

// WithLogger replaces the default logger
func (r *TabularReader) WithLogger(l *internal.Logger) *TabularReader {
	r.log = l
	return r
}

// Read loads the file into Records. A missing file is a fatal input error.
func (r *TabularReader) Read() (*table.Records, error) {
	r.log.Debug("[TabularReader] reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.Fatal(core.NewMissingInputError(strings.ToUpper(r.fileType)+" file", r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSV()
	case "xlsx":
		return r.readExcel()
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
}

func (r *TabularReader) readExcel() (*table.Records, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.ParseError(r.filePath, err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.ParseError(r.filePath, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.ParseError(r.filePath, fmt.Errorf("read sheet %s: %w", sheet, err))
	}
	r.log.Debug("[TabularReader] sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return r.processRows(rows)
}

func (r *TabularReader) readCSV() (*table.Records, error) {
	raw, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, errors.ParseError(r.filePath, err)
	}
	rows, err := ParseCSV(raw)
	if err != nil {
		return nil, errors.ParseError(r.filePath, err)
	}
	return r.processRows(rows)
}

func (r *TabularReader) processRows(rows [][]string) (*table.Records, error) {
	if len(rows) == 0 {
		return nil, errors.ParseError(r.filePath, fmt.Errorf("no header row"))
	}
	rec := table.NewRecords(rows[0], rows[1:])
	r.log.Debug("[TabularReader] %s processed (%d columns, %d rows)", filepath.Base(r.filePath), len(rec.Headers), rec.Len())
	return rec, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV decodes a CSV export, stripping a UTF-8 BOM and detecting the
// delimiter (';', ',' or tab) from the header line
func ParseCSV(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = DetectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// DetectDelimiter picks the most frequent of ';', ',' and tab on the first
// line; ties go to ';', the separator of French-locale exports
func DetectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestCount := ';', bytes.Count(line, []byte{';'})
	for _, c := range []rune{',', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
