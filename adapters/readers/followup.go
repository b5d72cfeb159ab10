package readers

import (
	"archive/zip"
	"fmt"
	"io"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/errors"
	"fermload/internal/normalize"
)

// Follow-up index columns
const (
	FollowUpBatchColumn  = "batch"
	FollowUpSampleColumn = "sample"
	FollowUpFileColumn   = "file"

	// FollowUpTimeColumn is the index column of every parsed follow-up table
	FollowUpTimeColumn = "Temps (h)"
	followUpDateColumn = "Date"
)

// FollowUpFile is one CSV entry of the archive
type FollowUpFile struct {
	Key  experiment.Key
	Name string
}

// KeyFunc maps an archive path to a key; ok=false skips the entry
type KeyFunc func(name string) (experiment.Key, bool)

// DefaultKeyFunc reads "<batch>/<sample>.csv" as a per-sample file and
// "<batch>.csv" as a batch-wide file
func DefaultKeyFunc(name string) (experiment.Key, bool) {
	if !strings.EqualFold(path.Ext(name), ".csv") {
		return experiment.Key{}, false
	}
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return experiment.Key{Batch: normalize.NormalizeExperimentKey(stem)}, true
	}
	return experiment.Key{
		Batch:  normalize.NormalizeExperimentKey(path.Base(dir)),
		Sample: normalize.NormalizeExperimentKey(stem),
	}, true
}

// FollowUpArchive reads per-key follow-up time series from a zip file
type FollowUpArchive struct {
	path    string
	keyFunc KeyFunc
	files   []FollowUpFile
	byName  map[string]*zip.File
	closer  io.Closer
}

// OpenFollowUpArchive indexes the archive. Entries whose name or any
// parent folder starts with "._" or "__MACOSX" are ignored.
func OpenFollowUpArchive(zipPath string, keyFunc KeyFunc) (*FollowUpArchive, error) {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, errors.Fatal(fmt.Errorf("%w: %s: %v", core.ErrFollowUpArchive, zipPath, err))
	}

	a := &FollowUpArchive{path: zipPath, keyFunc: keyFunc, byName: map[string]*zip.File{}, closer: zr}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || hiddenEntry(f.Name) {
			continue
		}
		key, ok := keyFunc(f.Name)
		if !ok {
			continue
		}
		a.files = append(a.files, FollowUpFile{Key: key, Name: f.Name})
		a.byName[f.Name] = f
	}
	sort.Slice(a.files, func(i, j int) bool { return a.files[i].Name < a.files[j].Name })
	return a, nil
}

func hiddenEntry(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, "._") || part == "__MACOSX" {
			return true
		}
	}
	return false
}

// Close releases the archive
func (a *FollowUpArchive) Close() error { return a.closer.Close() }

// Files lists the usable entries sorted by name
func (a *FollowUpArchive) Files() []FollowUpFile {
	return append([]FollowUpFile(nil), a.files...)
}

// Index returns the archive listing as a keyed table (batch, sample, file)
// for the reconciler; batch-wide files have an empty sample
func (a *FollowUpArchive) Index() *table.Records {
	rows := make([][]string, len(a.files))
	for i, f := range a.files {
		rows[i] = []string{f.Key.Batch, f.Key.Sample, f.Name}
	}
	return table.NewRecords([]string{FollowUpBatchColumn, FollowUpSampleColumn, FollowUpFileColumn}, rows)
}

// Table parses one entry into a frame indexed by FollowUpTimeColumn
func (a *FollowUpArchive) Table(name string) (*table.Frame, error) {
	f, ok := a.byName[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("follow-up file %s", name))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.ParseError(name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.ParseError(name, err)
	}
	rows, err := ParseCSV(raw)
	if err != nil {
		return nil, errors.ParseError(name, err)
	}
	if len(rows) == 0 {
		return table.NewFrame(), nil
	}
	frame, err := FollowUpFrame(table.NewRecords(rows[0], rows[1:]))
	if err != nil {
		return nil, errors.ParseError(name, err)
	}
	return frame, nil
}

// FollowUpFrame types a follow-up sheet: the first column is either Date
// (converted to hours elapsed since the first row) or already in hours;
// every other column is read leniently. Rows without a usable time are
// dropped. A Date column in which no row parses is an error.
func FollowUpFrame(rec *table.Records) (*table.Frame, error) {
	f := table.NewFrame()
	if len(rec.Headers) == 0 {
		return f, nil
	}
	first := rec.Headers[0]

	var hours []float64
	if strings.EqualFold(first, followUpDateColumn) {
		hours = elapsedHours(rec.Column(first))
		if rec.Len() > 0 && allNaN(hours) {
			return nil, fmt.Errorf("no parsable date in column %q", first)
		}
	} else {
		hours = normalize.NormalizeNumericColumn(rec.Column(first))
	}
	if err := f.AddNumeric(FollowUpTimeColumn, hours); err != nil {
		return nil, err
	}

	for _, h := range rec.Headers[1:] {
		if h == "" {
			continue
		}
		if err := f.AddNumeric(h, normalize.LenientColumn(rec.Column(h))); err != nil {
			return nil, err
		}
	}
	return f.DropRows(func(row int) bool { return math.IsNaN(hours[row]) }), nil
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// elapsedHours converts timestamps to hours since the first row; rows
// whose date cannot be parsed become NaN
func elapsedHours(values []string) []float64 {
	out := make([]float64, len(values))
	var origin time.Time
	haveOrigin := false
	for i, v := range values {
		t, ok := parseDate(v)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		if !haveOrigin {
			origin, haveOrigin = t, true
		}
		out[i] = t.Sub(origin).Hours()
	}
	return out
}
