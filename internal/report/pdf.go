package report

import (
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMarginMM    = 15
	pdfBodyWidthMM = 180
	pdfImageMaxMM  = 80
)

// RenderPDF writes the summary as a PDF document. Image references are
// embedded when the local file exists; a missing image simply omits the
// embed for that entry.
func RenderPDF(summary *Summary, meta Meta, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginMM, pdfMarginMM, pdfMarginMM)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := meta.Title
	if title == "" {
		title = "AI Feed Digest"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(pdfBodyWidthMM, 9, tr(title), "", "L", false)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(pdfBodyWidthMM, 5, tr(fmt.Sprintf("Generated %s | %d items", meta.GeneratedAt.Format(timeLayout), meta.ItemCount)), "", "L", false)

	if !meta.Window.From.IsZero() && !meta.Window.To.IsZero() {
		pdf.MultiCell(pdfBodyWidthMM, 5, tr(fmt.Sprintf("Window %s ~ %s",
			meta.Window.From.Format(timeLayout), meta.Window.To.Format(timeLayout))), "", "L", false)
	}

	pdf.SetTextColor(0, 0, 0)

	for _, sec := range summary.Sections {
		if len(sec.Entries) == 0 && len(sec.Highlights) == 0 {
			continue
		}

		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(pdfBodyWidthMM, 7, tr(sec.Name), "", "L", false)
		pdf.Ln(1)

		pdf.SetFont("Helvetica", "", 10)

		for _, h := range sec.Highlights {
			pdf.MultiCell(pdfBodyWidthMM, 5, tr("• "+h), "", "L", false)
			pdf.Ln(1)
		}

		for _, e := range sec.Entries {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.SetTextColor(20, 80, 160)
			pdf.WriteLinkString(6, tr(e.Title), e.Link)
			pdf.Ln(6)

			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(0, 0, 0)

			if e.Description != "" {
				pdf.MultiCell(pdfBodyWidthMM, 5, tr(e.Description), "", "L", false)
			}

			embedImage(pdf, e.ImageRef)
			pdf.Ln(2)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

func embedImage(pdf *fpdf.Fpdf, path string) {
	if path == "" {
		return
	}

	if _, err := os.Stat(path); err != nil {
		return
	}

	pdf.ImageOptions(path, pdf.GetX(), pdf.GetY(), pdfImageMaxMM, 0, true, fpdf.ImageOptions{}, 0, "")
	pdf.Ln(2)
}
