package export

import (
	"os"

	"fermload/domain/experiment"
	"fermload/domain/table"
	"fermload/internal/errors"
	"fermload/internal/venn"
)

// WriteVenn renders regions to a PNG file
func WriteVenn(path string, regions venn.Regions, opts venn.RenderOptions) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := venn.Render(out, regions, opts); err != nil {
		out.Close()
		return errors.Wrapf(err, "render %s", path)
	}
	return out.Close()
}

// TagCollection rebuilds a tag-only collection from a written manifest:
// tables are left empty, keys and missing_value tags are restored. It lets
// a Venn diagram be redrawn from an output directory.
func TagCollection(m *Manifest) (*experiment.Collection, error) {
	coll := experiment.NewCollection(m.Collection)
	for _, mr := range m.Resources {
		tag, err := experiment.ParseMissingValueTag(mr.Tags[experiment.TagMissingValue])
		if err != nil {
			return nil, errors.ParseError(mr.Name, err)
		}
		err = coll.Add(&experiment.Resource{
			Name:    mr.Name,
			Key:     experiment.Key{Batch: mr.Tags[experiment.TagBatch], Sample: mr.Tags[experiment.TagSample]},
			Plate:   mr.Tags[experiment.TagPlate],
			Table:   table.NewFrame(),
			Medium:  mr.Medium,
			Missing: tag,
		})
		if err != nil {
			return nil, err
		}
	}
	return coll, nil
}
