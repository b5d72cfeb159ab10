package venn

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math/rand"
	"testing"

	"fermload/domain/core"
	"fermload/domain/experiment"
	"fermload/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRegionsThreeSets(t *testing.T) {
	a := NewSet("info", "1", "2", "3", "4")
	b := NewSet("raw_data", "3", "4", "5")
	c := NewSet("follow_up", "4", "5", "6", "1")

	r, err := ComputeRegions([]NamedSet{a, b, c})
	require.NoError(t, err)

	assert.Equal(t, 1, r.OnlyA) // 2
	assert.Equal(t, 0, r.OnlyB)
	assert.Equal(t, 1, r.OnlyC) // 6
	assert.Equal(t, 1, r.AB)    // 3
	assert.Equal(t, 1, r.AC)    // 1
	assert.Equal(t, 1, r.BC)    // 5
	assert.Equal(t, 1, r.ABC)   // 4
	assert.Equal(t, 6, r.Union)
	assert.Equal(t, r.Union, r.Sum())
	assert.Len(t, r.List(), 7)
}

func TestComputeRegionsTwoSets(t *testing.T) {
	r, err := ComputeRegions([]NamedSet{
		NewSet("metadata", "A01", "A02", "B01"),
		NewSet("raw_data", "A02", "B01", "C01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.OnlyA)
	assert.Equal(t, 1, r.OnlyB)
	assert.Equal(t, 2, r.AB)
	assert.Zero(t, r.ABC)
	assert.Len(t, r.List(), 3)
	assert.Equal(t, 3, r.Union)
}

func TestComputeRegionsRejectsSetCount(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		sets := make([]NamedSet, n)
		for i := range sets {
			sets[i] = NewSet(fmt.Sprint(i))
		}
		_, err := ComputeRegions(sets)
		assert.True(t, errors.Is(err, core.ErrUnsupportedSetCount), "n=%d", n)
	}
}

func TestComputeRegionsDegenerate(t *testing.T) {
	t.Run("disjoint", func(t *testing.T) {
		r, err := ComputeRegions([]NamedSet{NewSet("a", "1"), NewSet("b", "2"), NewSet("c", "3")})
		require.NoError(t, err)
		assert.Equal(t, [3]int{1, 1, 1}, [3]int{r.OnlyA, r.OnlyB, r.OnlyC})
		assert.Zero(t, r.AB+r.AC+r.BC+r.ABC)
	})
	t.Run("identical", func(t *testing.T) {
		r, err := ComputeRegions([]NamedSet{NewSet("a", "1", "2"), NewSet("b", "1", "2"), NewSet("c", "1", "2")})
		require.NoError(t, err)
		assert.Equal(t, 2, r.ABC)
		assert.Equal(t, 2, r.Sum())
	})
	t.Run("one empty", func(t *testing.T) {
		r, err := ComputeRegions([]NamedSet{NewSet("a", "1", "2"), NewSet("b"), NewSet("c", "2")})
		require.NoError(t, err)
		assert.Equal(t, 1, r.OnlyA)
		assert.Equal(t, 1, r.AC)
		assert.Equal(t, 2, r.Union)
	})
}

func TestComputeRegionsPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 2 + rng.Intn(2)
		sets := make([]NamedSet, n)
		union := map[string]bool{}
		for i := range sets {
			sets[i] = NewSet(fmt.Sprintf("s%d", i))
			for j := 0; j < rng.Intn(30); j++ {
				k := fmt.Sprintf("k%d", rng.Intn(40))
				sets[i].Add(k)
				union[k] = true
			}
		}
		r, err := ComputeRegions(sets)
		require.NoError(t, err)
		assert.Equal(t, len(union), r.Union)
		assert.Equal(t, r.Union, r.Sum())

		total := 0
		for _, region := range r.List() {
			members, err := MembersOf(sets, region.ID)
			require.NoError(t, err)
			assert.Len(t, members, region.Count, region.ID)
			total += len(members)
		}
		assert.Equal(t, len(union), total)
	}
}

func TestLayoutFor(t *testing.T) {
	two := LayoutFor(2)
	assert.Len(t, two.Circles, 2)
	assert.Len(t, two.Labels, 3)
	assert.Equal(t, "a_and_b", two.Emphasized)

	three := LayoutFor(3)
	assert.Len(t, three.Circles, 3)
	assert.Len(t, three.Labels, 7)
	assert.Equal(t, "a_and_b_and_c", three.Emphasized)
	for id, p := range three.Labels {
		assert.True(t, p.X > 0 && p.X < 1 && p.Y > 0 && p.Y < 1, id)
	}
}

func TestRenderProducesPNG(t *testing.T) {
	r, err := ComputeRegions([]NamedSet{NewSet("info", "1", "2"), NewSet("medium", "2"), NewSet("follow_up", "2", "3")})
	require.NoError(t, err)

	var buf bytes.Buffer
	opts := DefaultRenderOptions()
	opts.Size = 200
	opts.Title = "run"
	require.NoError(t, Render(&buf, r, opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestRenderRejectsBadRegions(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, Regions{Names: []string{"x"}}, DefaultRenderOptions()))
}

func TestSetsFromCollection(t *testing.T) {
	coll := experiment.NewCollection("plates")
	add := func(plate, well string, labels ...experiment.MissingKind) {
		r := &experiment.Resource{
			Name:  plate + "_" + well,
			Key:   experiment.Key{Batch: plate, Sample: well},
			Plate: plate,
			Table: table.NewFrame(),
		}
		if len(labels) > 0 {
			r.Missing = &experiment.MissingValueTag{Labels: labels}
		}
		require.NoError(t, coll.Add(r))
	}
	add("P1", "A01")
	add("P1", "A02", experiment.MissingRawData)
	add("P2", "A01", experiment.MissingInfo)

	sets := SetsFromCollection(coll, []experiment.SourceKind{experiment.SourceInfo, experiment.SourceRawData})
	require.Len(t, sets, 2)
	assert.True(t, sets[0].Has("P1_A01"))
	assert.True(t, sets[0].Has("P1_A02"))
	assert.False(t, sets[0].Has("P2_A01"))
	assert.Equal(t, 2, sets[1].Len())

	r, err := ComputeRegions(sets)
	require.NoError(t, err)
	assert.Equal(t, 1, r.AB)
	assert.Equal(t, 1, r.OnlyA)
	assert.Equal(t, 1, r.OnlyB)
}

func TestSetsFromCollectionFollowUpEmpty(t *testing.T) {
	coll := experiment.NewCollection("run")
	require.NoError(t, coll.Add(&experiment.Resource{
		Name:    "E1 F1",
		Key:     experiment.Key{Batch: "E1", Sample: "F1"},
		Table:   table.NewFrame(),
		Missing: &experiment.MissingValueTag{Labels: []experiment.MissingKind{experiment.MissingFollowUpEmpty}},
	}))
	sets := SetsFromCollection(coll, []experiment.SourceKind{experiment.SourceInfo, experiment.SourceFollowUp})
	assert.True(t, sets[0].Has("E1 F1"))
	assert.False(t, sets[1].Has("E1 F1"))
}
