//go:build !darwin && !linux && !windows

package discover

func performanceCoreCount() int {
	return 0
}

func physicalCoreCount() int {
	return 0
}
