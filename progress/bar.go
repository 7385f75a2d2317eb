package progress

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

const defaultTermWidth = 80

// Bar renders "message ██░░ cur/max" sized to the terminal.
type Bar struct {
	message  string
	maxValue int64
	current  atomic.Int64
}

func NewBar(message string, maxValue int64) *Bar {
	return &Bar{message: message, maxValue: maxValue}
}

// Set updates the current value. Safe to call from the loading
// goroutine while the render ticker reads it.
func (b *Bar) Set(value int64) {
	if value > b.maxValue {
		value = b.maxValue
	}
	b.current.Store(value)
}

func (b *Bar) String() string {
	termWidth, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		termWidth = defaultTermWidth
	}

	current := b.current.Load()
	counter := fmt.Sprintf("%d/%d", current, b.maxValue)

	width := termWidth - len(b.message) - len(counter) - 4
	if width < 8 {
		return fmt.Sprintf("%s %s", b.message, counter)
	}

	filled := 0
	if b.maxValue > 0 {
		filled = int(int64(width) * current / b.maxValue)
	}

	var sb strings.Builder
	sb.WriteString(b.message)
	sb.WriteString(" ")
	sb.WriteString(strings.Repeat("█", filled))
	sb.WriteString(strings.Repeat("░", width-filled))
	sb.WriteString(" ")
	sb.WriteString(counter)
	return sb.String()
}
