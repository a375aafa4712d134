package forecast

import (
	"fmt"
	"io"
	"math"

	"github.com/abhisek/wksim/internal/ui"
)

// Render writes the per-day forecast table to w.
func Render(w io.Writer, res *Result) {
	fmt.Fprintln(w, ui.Title.Render(fmt.Sprintf("Forecast over %d trials", res.Trials)))
	fmt.Fprintln(w, ui.Dim.Render(fmt.Sprintf("seed %d", res.Seed)))

	for _, d := range res.Days {
		line := fmt.Sprintf("Day %3d: level %2d, %4d reviews",
			d.Day,
			int(math.Round(d.AvgLevel)),
			int(math.Round(d.AvgReviews)))
		fmt.Fprintln(w, ui.Body.Render(line))
	}
}
