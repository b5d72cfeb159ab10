// Package pivot reshapes long-format plate reader exports
// (one row per well, channel and time point) into wide tables.
package pivot

import (
	"math"
	"sort"

	"fermload/domain/core"
	"fermload/domain/table"
	"fermload/internal/normalize"
)

// Column aliases of the long raw export
var (
	WellAliases    = []string{"Well"}
	ChannelAliases = []string{"Filterset", "Channel"}
	TimeAliases    = []string{"Time"}
	ValueAliases   = []string{"Cal", "Value"}
)

// Observation is one (well, channel, time, value) row
type Observation struct {
	Well    string
	Channel string
	Time    float64 // seconds, NaN when unparsable
	Value   float64
}

// LongTable is a long-format measurement table
type LongTable struct {
	Observations []Observation
}

// FromRecords maps a raw export onto a LongTable. Wells are normalized to
// the padded form, times go through the coercing converter (NaN on garbage),
// values through the lenient converter.
func FromRecords(rec *table.Records) (*LongTable, error) {
	wellCol, ok := rec.FindColumn(WellAliases...)
	if !ok {
		return nil, core.NewMissingColumnError("raw data", WellAliases)
	}
	chanCol, ok := rec.FindColumn(ChannelAliases...)
	if !ok {
		return nil, core.NewMissingColumnError("raw data", ChannelAliases)
	}
	timeCol, ok := rec.FindColumn(TimeAliases...)
	if !ok {
		return nil, core.NewMissingColumnError("raw data", TimeAliases)
	}
	valCol, ok := rec.FindColumn(ValueAliases...)
	if !ok {
		return nil, core.NewMissingColumnError("raw data", ValueAliases)
	}

	lt := &LongTable{Observations: make([]Observation, 0, rec.Len())}
	for _, row := range rec.Rows {
		lt.Observations = append(lt.Observations, Observation{
			Well:    normalize.NormalizeWell(row[wellCol]),
			Channel: row[chanCol],
			Time:    normalize.ParseCoerce(row[timeCol]),
			Value:   normalize.ToNumericLenient(row[valCol]),
		})
	}
	return lt, nil
}

// Wells returns the distinct wells observed, sorted
func (l *LongTable) Wells() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range l.Observations {
		if !seen[o.Well] {
			seen[o.Well] = true
			out = append(out, o.Well)
		}
	}
	sort.Strings(out)
	return out
}

// Channels returns the distinct channel names, sorted
func (l *LongTable) Channels() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range l.Observations {
		if !seen[o.Channel] {
			seen[o.Channel] = true
			out = append(out, o.Channel)
		}
	}
	sort.Strings(out)
	return out
}

// sorted returns a copy ordered by channel, well, time (NaN times last)
func (l *LongTable) sorted() []Observation {
	obs := append([]Observation(nil), l.Observations...)
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Well != b.Well {
			return a.Well < b.Well
		}
		if math.IsNaN(b.Time) {
			return !math.IsNaN(a.Time)
		}
		return a.Time < b.Time
	})
	return obs
}
