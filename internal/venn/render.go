package venn

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// RenderOptions control the figure
type RenderOptions struct {
	Size     int // pixels per side
	Title    string
	FontSize float64
}

// DefaultRenderOptions returns a 600px square figure
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Size: 600, FontSize: 16}
}

var palette = []color.NRGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0x70},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0x70},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0x70},
}

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

func face(points float64) (font.Face, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse embedded font: %w", fontErr)
	}
	return truetype.NewFace(goFont, &truetype.Options{Size: points}), nil
}

// Render draws the diagram of r as PNG
func Render(w io.Writer, r Regions, opts RenderOptions) error {
	if len(r.Names) != 2 && len(r.Names) != 3 {
		return fmt.Errorf("render: %d sets", len(r.Names))
	}
	if opts.Size <= 0 {
		opts.Size = DefaultRenderOptions().Size
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultRenderOptions().FontSize
	}

	size := float64(opts.Size)
	dc := gg.NewContext(opts.Size, opts.Size)
	dc.SetColor(color.White)
	dc.Clear()

	layout := LayoutFor(len(r.Names))

	for i, c := range layout.Circles {
		dc.DrawCircle(c.Center.X*size, c.Center.Y*size, c.Radius*size)
		dc.SetColor(palette[i])
		dc.FillPreserve()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	regular, err := face(opts.FontSize)
	if err != nil {
		return err
	}
	large, err := face(opts.FontSize * 1.6)
	if err != nil {
		return err
	}

	dc.SetFontFace(regular)
	dc.SetRGB(0, 0, 0)
	for i, c := range layout.Circles {
		dc.DrawStringAnchored(r.Names[i], c.NameAt.X*size, c.NameAt.Y*size, 0.5, 0.5)
	}
	if opts.Title != "" {
		dc.DrawStringAnchored(opts.Title, size/2, opts.FontSize, 0.5, 0.5)
	}

	for _, region := range r.List() {
		at, ok := layout.Labels[region.ID]
		if !ok {
			continue
		}
		text := strconv.Itoa(region.Count)
		x, y := at.X*size, at.Y*size

		if region.ID == layout.Emphasized {
			dc.SetFontFace(large)
			tw, th := dc.MeasureString(text)
			pad := opts.FontSize * 0.4
			dc.DrawRoundedRectangle(x-tw/2-pad, y-th/2-pad, tw+2*pad, th+2*pad, pad)
			dc.SetRGBA(1, 1, 1, 0.85)
			dc.FillPreserve()
			dc.SetRGB(0.2, 0.2, 0.2)
			dc.SetLineWidth(1)
			dc.Stroke()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
			dc.SetFontFace(regular)
			continue
		}
		dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
	}

	return dc.EncodePNG(w)
}
