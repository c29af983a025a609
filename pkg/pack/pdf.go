package pack

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/matzehuels/cardforge/pkg/buildinfo"
	"github.com/matzehuels/cardforge/pkg/errors"
)

var pngOptions = fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}

// WritePDF renders the document as one PDF with a page per sheet.
// An empty document is a *errors.PackingError.
func (d *Document) WritePDF(w io.Writer) error {
	if len(d.Pages) == 0 {
		return errors.Packing(-1, errors.New(errors.ErrCodeInvalidInput, "nothing to pack"))
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: d.Sheet.Width, Ht: d.Sheet.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("cardforge "+buildinfo.Short(), true)

	for i, data := range d.images {
		pdf.RegisterImageOptionsReader(imageName(i), pngOptions, bytes.NewReader(data))
		if err := pdf.Error(); err != nil {
			return errors.Packing(i, err)
		}
	}

	for _, page := range d.Pages {
		pdf.AddPage()
		for _, p := range page.Placements {
			pdf.ImageOptions(imageName(d.refs[p.Index]), p.X, p.Y, d.Sheet.CellWidth, d.Sheet.CellHeight, false, pngOptions, 0, "")
		}
		if err := pdf.Error(); err != nil {
			return errors.Packing(-1, err)
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Packing(-1, err)
	}
	return nil
}

// WriteFile writes the PDF to path.
func (d *Document) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.WritePDF(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func imageName(i int) string {
	return fmt.Sprintf("card-%d", i)
}
