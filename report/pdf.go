// Package report exports a calculation result as a one-page PDF.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"dh-form/domain"
	"dh-form/service"
)

const (
	pageMargin   = 15.0 // mm
	contentWidth = 210.0 - 2*pageMargin
	lineHeight   = 7.0
	cellHeight   = 8.0
)

// ErrNoResult is returned when there is nothing to export.
var ErrNoResult = errors.New("no result to export")

// Labels are the localized strings printed on the report.
type Labels struct {
	Title      string
	Result     string
	Parameters string
	Generated  string
}

type Input struct {
	Rows        []domain.ParameterInput
	Result      domain.Matrix
	Coord       *domain.Coordinate
	GeneratedAt time.Time
	Labels      Labels
}

// WritePDF renders in as an A4 portrait page to w.
func WritePDF(w io.Writer, in Input) error {
	if len(in.Result) == 0 {
		return ErrNoResult
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetCreationDate(in.GeneratedAt)
	pdf.SetTitle(in.Labels.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(contentWidth, 10, tr(in.Labels.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(contentWidth, 5, tr(in.Labels.Generated), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	view := service.NewResultView(in.Result, in.Coord)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(contentWidth, lineHeight, tr(in.Labels.Result), "", 1, "L", false, 0, "")
	pdf.SetFont("Courier", "", 10)
	for _, row := range view.Rows {
		if len(row) == 0 {
			pdf.Ln(cellHeight)
			continue
		}
		cellW := contentWidth / float64(len(row))
		for _, cell := range row {
			pdf.CellFormat(cellW, cellHeight, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	if view.Coord != nil {
		pdf.SetFont("Arial", "B", 11)
		for _, line := range view.Coord.Lines() {
			pdf.CellFormat(contentWidth/3, lineHeight, line, "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.Ln(3)
	}

	if len(in.Rows) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(contentWidth, lineHeight, tr(in.Labels.Parameters), "", 1, "L", false, 0, "")

		colW := contentWidth / 5
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		for _, h := range []string{"#", "a", "alpha", "d", "theta"} {
			pdf.CellFormat(colW, cellHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for i, r := range in.Rows {
			cells := []string{fmt.Sprint(i), r.A, r.Alpha, r.D, r.Theta}
			for _, c := range cells {
				pdf.CellFormat(colW, cellHeight, tr(c), "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
