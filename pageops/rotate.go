package pageops

import (
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// placePage adds an output page showing template tplID (w by h points)
// turned clockwise by rotate degrees. For 90 and 270 the output page is h by
// w.
func placePage(pdf *gofpdf.Fpdf, imp *gofpdi.Importer, tplID int, w, h float64, rotate int) {
	if rotate == 90 || rotate == 270 {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: h, Ht: w})
	} else {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	}

	if rotate == 0 {
		imp.UseImportedTemplate(pdf, tplID, 0, 0, w, h)
		return
	}

	// The last transform applies first: rotate about the origin, then move
	// the rotated template back onto the page.
	pdf.TransformBegin()
	switch rotate {
	case 90:
		pdf.TransformTranslate(h, 0)
		pdf.TransformRotate(-90, 0, 0)
	case 180:
		pdf.TransformRotate(180, w/2, h/2)
	case 270:
		pdf.TransformTranslate(0, w)
		pdf.TransformRotate(90, 0, 0)
	}
	imp.UseImportedTemplate(pdf, tplID, 0, 0, w, h)
	pdf.TransformEnd()
}
