package pivot

import (
	"math"
	"sort"

	"fermload/domain/table"
)

// IndexColumn is the canonical elapsed-time column of pivoted tables, in hours
const IndexColumn = "Temps_en_h"

const secondsPerHour = 3600.0

type series struct {
	times  []float64
	values []float64
}

// ByChannel builds one wide table per channel: rows are time points,
// columns are IndexColumn plus one column per well of wellRange.
// Wells are aligned positionally; the shared time axis comes from the
// first well of wellRange that has data, and rows where it is missing
// are dropped.
func ByChannel(long *LongTable, wellRange []string) (map[string]*table.Frame, error) {
	grouped := map[string]map[string]*series{}
	for _, o := range long.sorted() {
		byWell, ok := grouped[o.Channel]
		if !ok {
			byWell = map[string]*series{}
			grouped[o.Channel] = byWell
		}
		s, ok := byWell[o.Well]
		if !ok {
			s = &series{}
			byWell[o.Well] = s
		}
		s.times = append(s.times, o.Time)
		s.values = append(s.values, o.Value)
	}

	out := make(map[string]*table.Frame, len(grouped))
	for channel, byWell := range grouped {
		frame, err := channelFrame(byWell, wellRange)
		if err != nil {
			return nil, err
		}
		out[channel] = frame
	}
	return out, nil
}

func channelFrame(byWell map[string]*series, wellRange []string) (*table.Frame, error) {
	var timeAxis []float64
	rows := 0
	for _, w := range wellRange {
		s, ok := byWell[w]
		if !ok {
			continue
		}
		if timeAxis == nil {
			timeAxis = s.times
		}
		if len(s.values) > rows {
			rows = len(s.values)
		}
	}

	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if i < len(timeAxis) && !math.IsNaN(timeAxis[i]) {
			keep = append(keep, i)
		}
	}

	f := table.NewFrame()
	hours := make([]float64, len(keep))
	for j, i := range keep {
		hours[j] = timeAxis[i] / secondsPerHour
	}
	if err := f.AddNumeric(IndexColumn, hours); err != nil {
		return nil, err
	}

	for _, w := range wellRange {
		col := make([]float64, len(keep))
		s := byWell[w]
		for j, i := range keep {
			if s != nil && i < len(s.values) {
				col[j] = s.values[i]
			} else {
				col[j] = math.NaN()
			}
		}
		if err := f.AddNumeric(w, col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ByWell transposes per-channel tables into one table per well with
// columns IndexColumn plus one column per channel (sorted by name).
// Channels are aligned positionally on a shared time axis: the index of
// the first channel that measured the well. Readers scan filtersets a few
// seconds apart, so the channels of one cycle share a row. Wells whose
// measurement columns are all missing are left out.
func ByWell(channels map[string]*table.Frame, wellRange []string) (map[string]*table.Frame, error) {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string]*table.Frame{}
	for _, well := range wellRange {
		var axis []float64
		for _, ch := range names {
			idx, okIdx := channels[ch].Column(IndexColumn)
			vals, okVals := channels[ch].Column(well)
			if okIdx && okVals && !vals.AllMissing() {
				axis = idx.Numeric
				break
			}
		}
		if axis == nil {
			continue
		}

		f := table.NewFrame()
		if err := f.AddNumeric(IndexColumn, axis); err != nil {
			return nil, err
		}
		for _, ch := range names {
			col := make([]float64, len(axis))
			vals, ok := channels[ch].Column(well)
			for i := range col {
				if ok && i < len(vals.Numeric) {
					col[i] = vals.Numeric[i]
				} else {
					col[i] = math.NaN()
				}
			}
			if err := f.AddNumeric(ch, col); err != nil {
				return nil, err
			}
		}

		if f.HasData(IndexColumn) {
			out[well] = f
		}
	}
	return out, nil
}

// Pivot runs ByChannel then ByWell
func Pivot(long *LongTable, wellRange []string) (map[string]*table.Frame, error) {
	channels, err := ByChannel(long, wellRange)
	if err != nil {
		return nil, err
	}
	return ByWell(channels, wellRange)
}
