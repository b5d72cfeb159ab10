package experiment

import (
	"errors"
	"testing"

	"fermload/domain/core"
	"fermload/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingValueTagRoundTrip(t *testing.T) {
	tag := &MissingValueTag{Labels: []MissingKind{MissingInfo, MissingMedium, MissingFollowUpEmpty}}
	s := tag.String()
	assert.Equal(t, "info, medium, follow_up_empty", s)

	parsed, err := ParseMissingValueTag(s)
	require.NoError(t, err)
	assert.Equal(t, tag, parsed)

	none, err := ParseMissingValueTag("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseMissingValueTag("info, bogus")
	assert.Error(t, err)
}

func TestColumnTagsMap(t *testing.T) {
	data := ColumnTags{ColumnName: "Dissolved Oxygen", Unit: "mg/L", Role: RoleData}
	assert.Equal(t, map[string]string{
		TagColumnName:   "Dissolved Oxygen",
		TagUnit:         "mg/L",
		TagIsDataColumn: "true",
	}, data.Map())

	meta := ColumnTags{ColumnName: "MILIEU", Role: RoleMetadataExempt}
	m := meta.Map()
	assert.NotContains(t, m, TagIsDataColumn)
	assert.NotContains(t, m, TagIsIndexColumn)
}

func TestResourceTagsOmitMissingWhenNil(t *testing.T) {
	r := &Resource{Name: "A1", Key: Key{Batch: "plate_0", Sample: "A01"}, Table: table.NewFrame()}
	tags := r.Tags()
	assert.NotContains(t, tags, TagMissingValue)
	assert.Equal(t, "A01", tags[TagSample])

	r.Missing = &MissingValueTag{Labels: []MissingKind{MissingRawData}}
	assert.Equal(t, "raw_data", r.Tags()[TagMissingValue])
}

func TestCollectionRejectsDuplicates(t *testing.T) {
	c := NewCollection("run")
	require.NoError(t, c.Add(&Resource{Name: "B1"}))
	require.NoError(t, c.Add(&Resource{Name: "A1"}))
	err := c.Add(&Resource{Name: "A1"})
	assert.True(t, errors.Is(err, core.ErrDuplicateResource))
	assert.Equal(t, []string{"A1", "B1"}, c.Names())
	assert.Equal(t, 2, c.Len())
}
