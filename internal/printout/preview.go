package printout

import (
	"fmt"
	"math"
	"strings"

	"github.com/jwalitptl/opd-desk/internal/model"
)

// Overlay is the content-start rectangle drawn on the A4 preview canvas.
type Overlay struct {
	TopPx    int
	LeftPx   int
	TopCM    float64
	LeftCM   float64
	WidthPx  int
	HeightPx int
}

// PxToCM converts screen pixels to centimetres, rounded to 0.01.
func PxToCM(px int) float64 {
	return math.Round(float64(px)/PixelsPerCM*100) / 100
}

// Preview places the overlay for ps on the A4 canvas. Out-of-range input is
// clamped, so the overlay always shows the offset that will be stored.
func Preview(ps model.PrintSettings) Overlay {
	ps = ps.Clamped()
	return Overlay{
		TopPx:    ps.Top,
		LeftPx:   ps.Left,
		TopCM:    PxToCM(ps.Top),
		LeftCM:   PxToCM(ps.Left),
		WidthPx:  A4WidthPx - ps.Left,
		HeightPx: A4HeightPx - ps.Top,
	}
}

// Sketch draws the page and overlay as text, one character per cols/rows
// cell of the A4 canvas.
func (o Overlay) Sketch(cols, rows int) string {
	if cols < 4 || rows < 4 {
		return ""
	}
	top := o.TopPx * rows / A4HeightPx
	left := o.LeftPx * cols / A4WidthPx

	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			switch {
			case r == 0 || r == rows-1:
				b.WriteByte('-')
			case c == 0 || c == cols-1:
				b.WriteByte('|')
			case r >= top && c >= left:
				b.WriteByte('#')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (o Overlay) String() string {
	return fmt.Sprintf("top %dpx (%.2f cm), left %dpx (%.2f cm)", o.TopPx, o.TopCM, o.LeftPx, o.LeftCM)
}
