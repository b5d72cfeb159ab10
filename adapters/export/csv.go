// Package export writes output collections and their companion tables
// (medium composition, statistics, Venn figure) to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/errors"
)

// ManifestFile is written next to the per-resource CSV files
const ManifestFile = "tags.json"

// Manifest describes a written collection
type Manifest struct {
	Collection string             `json:"collection"`
	Resources  []ManifestResource `json:"resources"`
}

// ManifestResource carries the tags of one resource
type ManifestResource struct {
	Name    string                       `json:"name"`
	File    string                       `json:"file"`
	Rows    int                          `json:"rows"`
	Tags    map[string]string            `json:"tags"`
	Medium  *experiment.MediumTag        `json:"medium,omitempty"`
	Columns map[string]map[string]string `json:"columns"`
}

// BuildManifest collects the tags of every resource, sorted by name
func BuildManifest(coll *experiment.Collection) *Manifest {
	m := &Manifest{Collection: coll.Name}
	for _, r := range coll.Resources() {
		cols := make(map[string]map[string]string, len(r.Columns))
		for name, tags := range r.Columns {
			cols[name] = tags.Map()
		}
		m.Resources = append(m.Resources, ManifestResource{
			Name:    r.Name,
			File:    FileName(r.Name),
			Rows:    r.Table.NumRows(),
			Tags:    r.Tags(),
			Medium:  r.Medium,
			Columns: cols,
		})
	}
	return m
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

// FileName maps a resource name to its CSV file name
func FileName(resource string) string {
	return unsafeFileChars.Replace(resource) + ".csv"
}

// WriteDirectory writes one CSV per resource plus the tags manifest.
// Nothing is written when two resources would share a file.
func WriteDirectory(coll *experiment.Collection, dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", dir)
	}
	manifest := BuildManifest(coll)
	if err := checkFileNames(manifest); err != nil {
		return nil, err
	}
	for _, mr := range manifest.Resources {
		r, _ := coll.Get(mr.Name)
		if err := WriteFrameFile(filepath.Join(dir, mr.File), r.Table); err != nil {
			return nil, err
		}
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), raw, 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", ManifestFile)
	}
	return manifest, nil
}

// checkFileNames rejects resources whose files collide, ignoring case so
// the layout also holds on case-insensitive file systems
func checkFileNames(m *Manifest) error {
	owner := make(map[string]string, len(m.Resources))
	for _, mr := range m.Resources {
		key := strings.ToLower(mr.File)
		if prev, dup := owner[key]; dup {
			return errors.WithCode(errors.CodeValidationError,
				fmt.Errorf("%w: %q and %q both map to %s", core.ErrDuplicateResource, prev, mr.Name, mr.File))
		}
		owner[key] = mr.Name
	}
	return nil
}

// ReadManifest loads a manifest written by WriteDirectory
func ReadManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, errors.NotFound(fmt.Sprintf("manifest in %s", dir))
	}
	m := &Manifest{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, errors.ParseError(ManifestFile, err)
	}
	sort.Slice(m.Resources, func(i, j int) bool { return m.Resources[i].Name < m.Resources[j].Name })
	return m, nil
}

// WriteFrameFile writes f as a comma-separated file
func WriteFrameFile(path string, f *table.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteFrameCSV(out, f); err != nil {
		out.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return out.Close()
}

// WriteFrameCSV writes a header row then one row per frame row; missing
// numeric cells are empty
func WriteFrameCSV(w io.Writer, f *table.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	cols := f.Columns()
	record := make([]string, len(cols))
	for row := 0; row < f.NumRows(); row++ {
		for i, c := range cols {
			record[i] = f.Cell(c, row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
