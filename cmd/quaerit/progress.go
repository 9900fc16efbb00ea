package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// newBar builds the progress bar used for bulk operations.
func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// barProgress adapts a progress bar to the reindex.Progress interface. The
// bar is created on Start, when the total becomes known.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(total int) {
	p.bar = newBar(total, "Reindexing")
}

func (p *barProgress) Update(completed int) {
	if p.bar != nil {
		p.bar.Set(completed)
	}
}

func (p *barProgress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
