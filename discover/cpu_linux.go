package discover

import (
	"bufio"
	"os"
	"strings"
)

// Linux has no portable performance-core query; hybrid x86 parts need
// kernel-specific sysfs spelunking that is not worth the fragility.
// Rely on the physical core count instead.
func performanceCoreCount() int {
	return 0
}

func physicalCoreCount() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	// Count distinct (physical id, core id) pairs. SMT siblings share
	// both fields and collapse into one core.
	cores := make(map[string]struct{})
	var physicalID, coreID string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "physical id":
			physicalID = strings.TrimSpace(value)
		case "core id":
			coreID = strings.TrimSpace(value)
			cores[physicalID+"/"+coreID] = struct{}{}
		}
	}

	return len(cores)
}
