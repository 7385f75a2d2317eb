package progress

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Spinner renders a message with a ticking indicator until stopped.
type Spinner struct {
	message string
	started time.Time
	stopped atomic.Bool
}

func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, started: time.Now()}
}

func (s *Spinner) Stop() {
	s.stopped.Store(true)
}

func (s *Spinner) String() string {
	if s.stopped.Load() {
		return s.message
	}

	spinners := `-\|/`
	frame := int(time.Since(s.started)/(100*time.Millisecond)) % len(spinners)

	var sb strings.Builder
	sb.WriteString(s.message)
	if len(s.message) > 0 {
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "%c", spinners[frame])
	return sb.String()
}
