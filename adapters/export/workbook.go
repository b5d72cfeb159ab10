package export

import (
	"fmt"
	"sort"
	"strings"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/errors"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	tagsSheet    = "tags"
)

var badSheetChars = strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "", "\\", "")

// SheetNames assigns every resource a unique Excel-safe sheet name,
// avoiding the tags sheet and any reserved name
func SheetNames(names []string, reserved ...string) map[string]string {
	out := make(map[string]string, len(names))
	used := map[string]bool{strings.ToLower(tagsSheet): true}
	for _, r := range reserved {
		used[strings.ToLower(r)] = true
	}
	for _, n := range names {
		base := badSheetChars.Replace(n)
		if base == "" {
			base = "sheet"
		}
		if len(base) > maxSheetName {
			base = base[:maxSheetName]
		}
		candidate := base
		for i := 2; used[strings.ToLower(candidate)]; i++ {
			suffix := fmt.Sprintf("~%d", i)
			cut := base
			if len(cut)+len(suffix) > maxSheetName {
				cut = cut[:maxSheetName-len(suffix)]
			}
			candidate = cut + suffix
		}
		used[strings.ToLower(candidate)] = true
		out[n] = candidate
	}
	return out
}

// WriteWorkbook writes one sheet per resource and a tags sheet listing
// resource tags, then any extra named tables (statistics, medium)
func WriteWorkbook(path string, coll *experiment.Collection, extra map[string]*table.Frame) error {
	f := excelize.NewFile()
	defer f.Close()

	extraNames := make([]string, 0, len(extra))
	for n := range extra {
		extraNames = append(extraNames, n)
	}
	sort.Strings(extraNames)

	names := coll.Names()
	sheets := SheetNames(names, extraNames...)

	first := true
	for _, name := range names {
		r, _ := coll.Get(name)
		sheet := sheets[name]
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return errors.Wrap(err, "rename first sheet")
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "add sheet %s", sheet)
		}
		if err := writeFrameSheet(f, sheet, r.Table); err != nil {
			return err
		}
	}

	if err := writeTagsSheet(f, coll, sheets, first); err != nil {
		return err
	}

	for _, n := range extraNames {
		if _, err := f.NewSheet(n); err != nil {
			return errors.Wrapf(err, "add sheet %s", n)
		}
		if err := writeFrameSheet(f, n, extra[n]); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save workbook %s", path)
	}
	return nil
}

func writeTagsSheet(f *excelize.File, coll *experiment.Collection, sheets map[string]string, renameDefault bool) error {
	if renameDefault {
		if err := f.SetSheetName("Sheet1", tagsSheet); err != nil {
			return errors.Wrap(err, "rename first sheet")
		}
	} else if _, err := f.NewSheet(tagsSheet); err != nil {
		return errors.Wrap(err, "add tags sheet")
	}

	header := []interface{}{"resource", "sheet", experiment.TagBatch, experiment.TagSample, experiment.TagPlate,
		experiment.TagMedium, experiment.TagMissingValue, experiment.TagDescription}
	if err := f.SetSheetRow(tagsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write tags header")
	}
	for i, r := range coll.Resources() {
		tags := r.Tags()
		row := []interface{}{r.Name, sheets[r.Name], tags[experiment.TagBatch], tags[experiment.TagSample],
			tags[experiment.TagPlate], tags[experiment.TagMedium], tags[experiment.TagMissingValue], tags[experiment.TagDescription]}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(tagsSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write tags of %s", r.Name)
		}
	}
	return nil
}

func writeFrameSheet(f *excelize.File, sheet string, frame *table.Frame) error {
	header := make([]interface{}, 0, frame.NumColumns())
	for _, n := range frame.Names() {
		header = append(header, n)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrapf(err, "write header of %s", sheet)
	}

	cols := frame.Columns()
	for row := 0; row < frame.NumRows(); row++ {
		values := make([]interface{}, len(cols))
		for i, c := range cols {
			if c.Kind == table.KindText {
				values[i] = c.Text[row]
				continue
			}
			if v := frame.Cell(c, row); v != "" {
				values[i] = c.Numeric[row]
			} else {
				values[i] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d of %s", row, sheet)
		}
	}
	return nil
}
