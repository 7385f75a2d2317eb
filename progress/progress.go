// Package progress renders transient terminal state lines for long
// operations such as model loading.
package progress

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"
)

// State is one renderable line.
type State interface {
	String() string
}

// Progress periodically redraws a stack of State lines on w.
type Progress struct {
	mu sync.Mutex

	// buffer output to minimize flickering
	w *bufio.Writer

	pos    int
	ticker *time.Ticker
	states []State
}

func NewProgress(w io.Writer) *Progress {
	p := &Progress{w: bufio.NewWriter(w)}
	go p.start()
	return p
}

// Add appends a new state line below the existing ones.
func (p *Progress) Add(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *Progress) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer p.w.Flush()

	// clear already rendered lines and redraw
	fmt.Fprint(p.w, "\033[?25l")
	defer fmt.Fprint(p.w, "\033[?25h")

	if p.pos > 0 {
		fmt.Fprintf(p.w, "\033[%dA\033[J", p.pos)
	}

	for _, state := range p.states {
		fmt.Fprintln(p.w, state.String())
	}
	p.pos = len(p.states)
}

func (p *Progress) start() {
	p.ticker = time.NewTicker(100 * time.Millisecond)
	for range p.ticker.C {
		p.render()
	}
}

func (p *Progress) stop() bool {
	p.mu.Lock()
	stopped := p.ticker != nil
	if stopped {
		p.ticker.Stop()
		p.ticker = nil
	}
	p.mu.Unlock()

	if stopped {
		p.render()
	}
	return stopped
}

// Stop halts rendering, leaving the final state visible.
func (p *Progress) Stop() bool {
	stopped := p.stop()
	if stopped {
		fmt.Fprint(p.w, "\n")
		p.w.Flush()
	}
	return stopped
}

// StopAndClear halts rendering and erases every rendered line.
func (p *Progress) StopAndClear() bool {
	stopped := p.stop()
	if stopped {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.pos > 0 {
			fmt.Fprintf(p.w, "\033[%dA\033[J", p.pos)
			p.pos = 0
		}
		p.w.Flush()
	}
	return stopped
}
