package gateways

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"

	"golang.org/x/term"
)

// unknownTotalStep is how many bytes pass between notifications when Content-Length is missing
const unknownTotalStep = 10 << 20

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with base-1024 units and at most two decimals
func FormatBytes(b int64) string {
	if b <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(b)) / math.Log(1024)))
	// log rounding can land one off at exact powers of 1024
	if i+1 < len(byteUnits) && float64(b) >= math.Pow(1024, float64(i+1)) {
		i++
	} else if i > 0 && float64(b) < math.Pow(1024, float64(i)) {
		i--
	}
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}

	value := math.Round(float64(b)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[i]
}

// progressTracker turns byte counts into step-sized notifications
type progressTracker struct {
	name        string
	total       int64
	received    int64
	step        int
	lastPercent int
	nextMark    int64
	observer    progressSink
}

// progressSink is the subset of ProgressObserver the tracker needs
type progressSink interface {
	Advanced(name string, received, total int64, percent int)
}

func newProgressTracker(name string, total int64, step int, observer progressSink) *progressTracker {
	return &progressTracker{
		name:     name,
		total:    total,
		step:     step,
		nextMark: unknownTotalStep,
		observer: observer,
	}
}

func (p *progressTracker) add(n int64) {
	p.received += n

	if p.total <= 0 {
		if p.received >= p.nextMark {
			p.observer.Advanced(p.name, p.received, -1, -1)
			for p.nextMark <= p.received {
				p.nextMark += unknownTotalStep
			}
		}
		return
	}

	percent := p.percent()
	if percent-p.lastPercent >= p.step {
		p.lastPercent = percent
		p.observer.Advanced(p.name, p.received, p.total, percent)
	}
}

// complete emits a final 100% notification if the last step fell short of it
func (p *progressTracker) complete() {
	if p.total > 0 && p.received >= p.total && p.lastPercent < 100 {
		p.lastPercent = 100
		p.observer.Advanced(p.name, p.received, p.total, 100)
	}
}

func (p *progressTracker) percent() int {
	percent := int(p.received * 100 / p.total)
	if percent > 100 {
		return 100
	}
	return percent
}

type discardProgress struct{}

func (discardProgress) Started(string, int64)              {}
func (discardProgress) Advanced(string, int64, int64, int) {}
func (discardProgress) Finished(string, int64)             {}
func (discardProgress) Failed(string, error)               {}

// ConsoleProgress prints human-readable progress lines. On a terminal the
// current line is redrawn in place; otherwise every notification gets a line.
type ConsoleProgress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	// pending is set while a redrawn line has no trailing newline
	pending bool
}

// NewConsoleProgress creates a progress printer writing to out (default os.Stderr)
func NewConsoleProgress(out io.Writer) *ConsoleProgress {
	if out == nil {
		out = os.Stderr
	}

	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	return &ConsoleProgress{out: out, interactive: interactive}
}

// Started prints the size of the upcoming download
func (c *ConsoleProgress) Started(name string, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if total < 0 {
		fmt.Fprintf(c.out, "[prefetch] %s: downloading (size unknown)\n", name)
		return
	}
	fmt.Fprintf(c.out, "[prefetch] %s: downloading %s\n", name, FormatBytes(total))
}

// Advanced prints the current percentage
func (c *ConsoleProgress) Advanced(name string, received, total int64, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var line string
	if total < 0 {
		line = fmt.Sprintf("[prefetch] %s: %s received", name, FormatBytes(received))
	} else {
		line = fmt.Sprintf("[prefetch] %s: %d%% (%s / %s)", name, percent, FormatBytes(received), FormatBytes(total))
	}

	if c.interactive {
		fmt.Fprintf(c.out, "\r%s    ", line)
		c.pending = true
		return
	}
	fmt.Fprintln(c.out, line)
}

// Finished terminates the progress line
func (c *ConsoleProgress) Finished(name string, received int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endLine()
	fmt.Fprintf(c.out, "[prefetch] %s: done (%s)\n", name, FormatBytes(received))
}

// Failed terminates the progress line of an aborted download
func (c *ConsoleProgress) Failed(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endLine()
	fmt.Fprintf(c.out, "[prefetch] %s: failed: %v\n", name, err)
}

func (c *ConsoleProgress) endLine() {
	if c.pending {
		fmt.Fprintln(c.out)
		c.pending = false
	}
}
