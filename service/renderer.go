package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"dh-form/domain"
)

// ResultView is what the result area shows for a form state.
type ResultView struct {
	ShowTable   bool
	ShowDivider bool
	Rows        [][]string
	Coord       *CoordView
}

type CoordView struct {
	X string
	Y string
	Z string
}

// Lines returns the coordinate labels as displayed: "X: 1.0000" and so on.
func (c CoordView) Lines() []string {
	return []string{"X: " + c.X, "Y: " + c.Y, "Z: " + c.Z}
}

// FormatNumber renders v with four decimals.
func FormatNumber(v float64) string {
	if v == 0 {
		// drop the sign of negative zero
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func NewResultView(result domain.Matrix, coord *domain.Coordinate) ResultView {
	var v ResultView
	if len(result) > 0 {
		v.ShowTable = true
		v.ShowDivider = true
		v.Rows = make([][]string, len(result))
		for i, row := range result {
			cells := make([]string, len(row))
			for j, cell := range row {
				cells[j] = FormatNumber(cell)
			}
			v.Rows[i] = cells
		}
	}
	if coord != nil {
		v.Coord = &CoordView{
			X: FormatNumber(coord.X),
			Y: FormatNumber(coord.Y),
			Z: FormatNumber(coord.Z),
		}
	}
	return v
}

// ViewOf is NewResultView for a whole form state.
func ViewOf(s domain.FormState) ResultView {
	return NewResultView(s.Result, s.Coord)
}

// RenderText writes the view as plain text: one tab-separated line per
// matrix row followed by the coordinate lines.
func RenderText(w io.Writer, v ResultView) error {
	var b strings.Builder
	if v.ShowTable {
		for _, row := range v.Rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	if v.Coord != nil {
		for _, line := range v.Coord.Lines() {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
