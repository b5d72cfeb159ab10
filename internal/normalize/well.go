package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

// SplitWell splits a well label into its row letters and column number.
// ok is false when the label has no leading letters or a non-numeric tail.
func SplitWell(id string) (row string, col int, ok bool) {
	id = strings.TrimSpace(id)
	i := 0
	for i < len(id) && id[i] < unicode.MaxASCII && unicode.IsLetter(rune(id[i])) {
		i++
	}
	if i == 0 || i == len(id) {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil || n < 0 || strings.ContainsAny(id[i:], "+-") {
		return "", 0, false
	}
	return strings.ToUpper(id[:i]), n, true
}

// WellName renders row letters and column number in the padded form ("A01")
func WellName(row string, col int) string {
	return strings.ToUpper(row) + pad2(col)
}

// NormalizeWell maps a well label to its zero-padded form: "A1" -> "A01".
// Labels shorter than 2 characters and labels that do not look like
// letter+number are returned unchanged.
func NormalizeWell(id string) string {
	if len(id) < 2 {
		return id
	}
	row, col, ok := SplitWell(id)
	if !ok {
		return id
	}
	return row + pad2(col)
}

// ShortenWell maps a well label to its display form: "A01" -> "A1".
func ShortenWell(id string) string {
	if len(id) < 2 {
		return id
	}
	row, col, ok := SplitWell(id)
	if !ok {
		return id
	}
	return row + strconv.Itoa(col)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// NormalizeExperimentKey trims s and collapses each run of spaces and
// underscores into one separator (the first character of the run).
func NormalizeExperimentKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == ' ' || r == '_' {
			if inRun {
				continue
			}
			inRun = true
		} else {
			inRun = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SameKey compares two experiment-key strings after normalization,
// ignoring case and treating space and underscore as equivalent.
func SameKey(a, b string) bool {
	return foldKey(a) == foldKey(b)
}

// FoldKey is the comparison form used by SameKey
func FoldKey(s string) string { return foldKey(s) }

func foldKey(s string) string {
	s = NormalizeExperimentKey(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToLower(s)
}
