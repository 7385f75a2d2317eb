package discover

import (
	"golang.org/x/sys/unix"
)

// Apple silicon exposes its heterogeneous core layout through sysctl:
// perflevel0 is the performance cluster. The key is absent on Intel
// Macs, where the probe falls through to the physical core count.
func performanceCoreCount() int {
	n, err := unix.SysctlUint32("hw.perflevel0.physicalcpu")
	if err != nil {
		return 0
	}
	return int(n)
}

func physicalCoreCount() int {
	n, err := unix.SysctlUint32("hw.physicalcpu")
	if err != nil {
		return 0
	}
	return int(n)
}
