package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress is an mpb progress bar that is safe to advance from several
// goroutines. A disabled Progress accepts every call and draws nothing.
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar

	mu          sync.Mutex
	description string
}

var descLength = 24

// NewProgress creates a progress bar for total items on stderr. The bar is
// only drawn when enabled and stderr is a terminal.
func NewProgress(total int, enabled bool) *Progress {
	if !enabled || !isTerminal() {
		return &Progress{}
	}
	fmt.Fprintln(os.Stderr)
	return newProgress(os.Stderr, total)
}

func newProgress(w io.Writer, total int) *Progress {
	p := &Progress{}
	p.container = mpb.New(
		mpb.WithOutput(w),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return truncate(p.current(), descLength)
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return p
}

// Enabled reports whether the bar is drawn
func (p *Progress) Enabled() bool {
	return p.bar != nil
}

// Increment advances the bar by one and shows description
func (p *Progress) Increment(description string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.description = description
	p.mu.Unlock()
	p.bar.Increment()
}

// Finish completes the bar and waits for the final render
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}
	p.bar.SetTotal(-1, true)
	p.container.Wait()
	fmt.Fprintln(os.Stderr)
}

func (p *Progress) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.description
}

// truncate shortens s to n runes, marking the cut with ".."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return ".." + string(r[len(r)-n+2:])
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
