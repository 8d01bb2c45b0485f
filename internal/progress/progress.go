// Package progress renders a terminal progress bar over a fixed number of
// steps. A nil *Bar is valid and draws nothing.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a bar of max steps written to w. It returns nil when w is nil
// or max is not positive.
func New(w io.Writer, max int, description string) *Bar {
	if w == nil || max <= 0 {
		return nil
	}
	return &Bar{bar: progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Describe(description string) {
	if b == nil {
		return
	}
	b.bar.Describe(description)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
