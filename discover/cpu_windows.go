package discover

import (
	"golang.org/x/sys/windows"
)

func performanceCoreCount() int {
	return 0
}

// Windows does not expose physical core topology without walking
// GetLogicalProcessorInformationEx buffers; the active processor count
// is close enough for a thread-count default.
func physicalCoreCount() int {
	return int(windows.GetActiveProcessorCount(windows.ALL_PROCESSOR_GROUPS))
}
