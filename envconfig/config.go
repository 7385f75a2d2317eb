// Package envconfig reads the KILN_* environment variables. Values
// here sit between package defaults and explicit flags: flags win,
// environment fills in anything the user left unset.
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via KILN_DEBUG in the environment
	Debug bool
	// Set via KILN_NUM_THREADS in the environment
	NumThreads int
	// Set via KILN_NO_MMAP in the environment
	NoMmap bool
	// Set via KILN_NOPROGRESS in the environment
	NoProgress bool
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"KILN_DEBUG":       {"KILN_DEBUG", Debug, "Show additional debug information (e.g. KILN_DEBUG=1)"},
		"KILN_NUM_THREADS": {"KILN_NUM_THREADS", NumThreads, "Default worker thread count when --threads is not given"},
		"KILN_NO_MMAP":     {"KILN_NO_MMAP", NoMmap, "Load models fully into memory instead of memory-mapping"},
		"KILN_NOPROGRESS":  {"KILN_NOPROGRESS", NoProgress, "Disable terminal progress rendering during model load"},
	}
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = parseBool("KILN_DEBUG")
	NoMmap = parseBool("KILN_NO_MMAP")
	NoProgress = parseBool("KILN_NOPROGRESS")

	NumThreads = 0
	if threads := clean("KILN_NUM_THREADS"); threads != "" {
		n, err := strconv.Atoi(threads)
		if err != nil || n < 1 {
			slog.Warn("ignoring invalid KILN_NUM_THREADS", "value", threads)
		} else {
			NumThreads = n
		}
	}
}

func parseBool(key string) bool {
	value := clean(key)
	if value == "" {
		return false
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		// Any non-empty, non-boolean value counts as set, matching
		// VAR=foo intuition.
		return true
	}
	return b
}
