package table

import (
	"strings"
)

// Row represents one record of raw cells keyed by header
type Row map[string]string

// Records is a raw string table as read from a CSV/XLSX export.
// Cells are trimmed but otherwise untouched; numeric conversion happens later.
type Records struct {
	Headers []string
	Rows    []Row
}

// NewRecords builds Records from a header row and positional data rows.
// Short rows are padded with empty cells, extra cells are dropped.
func NewRecords(headers []string, rows [][]string) *Records {
	hdr := make([]string, len(headers))
	for i, h := range headers {
		hdr[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	out := &Records{Headers: hdr, Rows: make([]Row, 0, len(rows))}
	for _, raw := range rows {
		if isBlank(raw) {
			continue
		}
		row := make(Row, len(hdr))
		for j, h := range hdr {
			if j < len(raw) {
				row[h] = strings.TrimSpace(raw[j])
			} else {
				row[h] = ""
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of data rows; nil Records are empty
func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether there is no data row
func (r *Records) Empty() bool { return r.Len() == 0 }

// FindColumn returns the first header matching one of the aliases,
// compared case-insensitively after trimming.
func (r *Records) FindColumn(aliases ...string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, alias := range aliases {
		for _, h := range r.Headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(alias)) {
				return h, true
			}
		}
	}
	return "", false
}

// Column returns every cell of one column in row order
func (r *Records) Column(header string) []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[header]
	}
	return out
}

// Filter returns a new Records holding the rows accepted by keep.
// Rows are copied so the result never aliases the receiver.
func (r *Records) Filter(keep func(Row) bool) *Records {
	if r == nil {
		return &Records{}
	}
	out := &Records{Headers: append([]string(nil), r.Headers...)}
	for _, row := range r.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row.clone())
		}
	}
	return out
}

// Clone deep-copies the records
func (r *Records) Clone() *Records {
	return r.Filter(func(Row) bool { return true })
}

func (row Row) clone() Row {
	c := make(Row, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}
