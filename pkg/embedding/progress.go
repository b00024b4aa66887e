package embedding

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// NewProgressBar returns a ProgressFunc that redraws a single-line bar on w
func NewProgressBar(w io.Writer) ProgressFunc {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	return func(done, total int) {
		if total == 0 {
			return
		}
		fmt.Fprintf(w, "\r%s %d/%d", bar.ViewAs(float64(done)/float64(total)), done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
