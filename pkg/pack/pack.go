// Package pack tiles rendered cards onto fixed-size print sheets and writes
// them as a PDF.
//
// Placement is a plain row-major grid. With
//
//	cols    = floor((sheet_w - 2*margin) / cell_w)
//	rows    = floor((sheet_h - 2*margin) / cell_h)
//	perPage = cols * rows
//
// image i goes to page i/perPage, cell i%perPage, at
// (margin + col*cell_w, margin + row*cell_h), scaled to exactly one cell.
// There is no rotation and no attempt to fill gaps.
//
// Packing is all or nothing: every source is decoded before the document
// exists, and the first unreadable one fails the whole call with a
// *errors.PackingError naming its index.
package pack

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// Sheet describes the page and cell geometry in millimetres.
type Sheet struct {
	Width      float64
	Height     float64
	CellWidth  float64
	CellHeight float64
	Margin     float64
}

// DefaultSheet is A4 portrait with 70x100 mm cells and a 10 mm margin.
func DefaultSheet() Sheet {
	return Sheet{Width: 210, Height: 297, CellWidth: 70, CellHeight: 100, Margin: 10}
}

// Grid returns the number of columns, rows and cells per page.
func (s Sheet) Grid() (cols, rows, perPage int, err error) {
	if s.Width <= 0 || s.Height <= 0 || s.CellWidth <= 0 || s.CellHeight <= 0 || s.Margin < 0 {
		return 0, 0, 0, errors.Packing(-1, errors.New(errors.ErrCodeInvalidInput,
			"invalid sheet %gx%g mm, cell %gx%g mm, margin %g mm", s.Width, s.Height, s.CellWidth, s.CellHeight, s.Margin))
	}
	cols = fit(s.Width-2*s.Margin, s.CellWidth)
	rows = fit(s.Height-2*s.Margin, s.CellHeight)
	if cols < 1 || rows < 1 {
		return cols, rows, 0, errors.Packing(-1, errors.New(errors.ErrCodeInvalidInput,
			"a %gx%g mm cell does not fit on a %gx%g mm sheet with %g mm margins", s.CellWidth, s.CellHeight, s.Width, s.Height, s.Margin))
	}
	return cols, rows, cols * rows, nil
}

// fit is floor(space/cell), tolerant of float error on exact fits.
func fit(space, cell float64) int {
	if space <= 0 {
		return 0
	}
	return int(math.Floor(space/cell + 1e-9))
}

// Placement is the position of one image on a page.
type Placement struct {
	Index int // source index
	Cell  int
	Row   int
	Col   int
	X, Y  float64 // top-left corner, mm
}

// Page is one sheet of placements, in source order.
type Page struct {
	Number     int // 0-based
	Placements []Placement
}

// Layout computes the placement of n images. It touches no image data.
// n == 0 yields no pages.
func Layout(n int, s Sheet) ([]Page, error) {
	cols, _, perPage, err := s.Grid()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Packing(-1, errors.New(errors.ErrCodeInvalidInput, "negative image count %d", n))
	}

	var pages []Page
	for i := 0; i < n; i++ {
		cell := i % perPage
		if cell == 0 {
			pages = append(pages, Page{Number: i / perPage})
		}
		row, col := cell/cols, cell%cols
		p := &pages[len(pages)-1]
		p.Placements = append(p.Placements, Placement{
			Index: i,
			Cell:  cell,
			Row:   row,
			Col:   col,
			X:     s.Margin + float64(col)*s.CellWidth,
			Y:     s.Margin + float64(row)*s.CellHeight,
		})
	}
	return pages, nil
}

// Source is an image to pack: a file path, an in-memory image or encoded
// PNG bytes.
type Source struct {
	Path  string
	Image image.Image
	PNG   []byte
}

// FromPath returns a Source reading the image at path.
func FromPath(path string) Source { return Source{Path: path} }

// FromImage returns a Source for an in-memory image.
func FromImage(img image.Image) Source { return Source{Image: img} }

// FromPNG returns a Source for PNG-encoded data.
func FromPNG(data []byte) Source { return Source{PNG: data} }

func (s Source) decode() ([]byte, error) {
	if s.PNG != nil {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(s.PNG))
		if err != nil {
			return nil, err
		}
		if format != "png" || cfg.Width == 0 || cfg.Height == 0 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "not a PNG image")
		}
		return s.PNG, nil
	}
	img := s.Image
	if img == nil {
		if s.Path == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "empty source")
		}
		var err error
		if img, err = imaging.Open(s.Path); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document is a packed, not yet written, PDF.
type Document struct {
	Sheet Sheet
	Pages []Page
	// images holds PNG data; refs maps each source index to an entry.
	images [][]byte
	refs   []int
}

// Pack decodes every source and lays them out on sheets.
func Pack(ctx context.Context, sources []Source, s Sheet) (*Document, error) {
	pages, err := Layout(len(sources), s)
	if err != nil {
		return nil, err
	}
	doc := &Document{Sheet: s, Pages: pages, refs: make([]int, len(sources))}
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := src.decode()
		if err != nil {
			return nil, errors.Packing(i, err)
		}
		doc.images = append(doc.images, data)
		doc.refs[i] = i
	}
	return doc, nil
}

// PackBacks lays out count copies of one back image. The image is decoded
// and embedded once.
func PackBacks(ctx context.Context, back Source, count int, s Sheet) (*Document, error) {
	pages, err := Layout(count, s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := back.decode()
	if err != nil {
		return nil, errors.Packing(0, err)
	}
	return &Document{Sheet: s, Pages: pages, images: [][]byte{data}, refs: make([]int, count)}, nil
}

// Len returns the number of placed images.
func (d *Document) Len() int { return len(d.refs) }
