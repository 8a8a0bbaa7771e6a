package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker reports progress across the configured databases.
type Tracker interface {
	Describe(description string)
	Add(n int)
	Finish()
}

// New returns a bar on f when enabled and f is an interactive terminal,
// otherwise a Tracker that does nothing.
func New(total int, enabled bool, f *os.File) Tracker {
	if !enabled || f == nil || !interactive(f) {
		return Nop{}
	}
	return NewBar(total, f)
}

// NewBar always renders to w.
func NewBar(total int, w io.Writer) Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("databases"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
	return &barTracker{bar: bar}
}

func interactive(f *os.File) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type barTracker struct {
	bar *progressbar.ProgressBar
}

func (b *barTracker) Describe(description string) { b.bar.Describe(description) }

func (b *barTracker) Add(n int) { _ = b.bar.Add(n) }

func (b *barTracker) Finish() { _ = b.bar.Finish() }

type Nop struct{}

func (Nop) Describe(string) {}
func (Nop) Add(int)         {}
func (Nop) Finish()         {}
