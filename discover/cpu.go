// Package discover probes the host for the compute resources available
// to the generation engine.
package discover

import (
	"log/slog"
	"runtime"
)

// ThreadCount resolves the number of worker threads the engine should
// use. An explicit request is returned unmodified. Otherwise the host
// is probed for performance cores, falling back to physical cores and
// finally to the scheduler's logical CPU count. The result is always
// positive.
func ThreadCount(requested int) int {
	if requested > 0 {
		return requested
	}

	if n := performanceCoreCount(); n > 0 {
		slog.Debug("detected performance cores", "count", n)
		return n
	}

	if n := physicalCoreCount(); n > 0 {
		slog.Debug("detected physical cores", "count", n)
		return n
	}

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	slog.Debug("falling back to logical cpu count", "count", n)
	return n
}
