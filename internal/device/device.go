// Package device opens the control endpoint published by the process tracking producer.
//
// On Windows the producer is a kernel driver answering IOCTL_COSMOS_DUMP_PROCESSES on
// \\.\CosmosLink. On Linux it is an eBPF program maintaining a pinned hash map whose
// values use the same record layout. Both hand back raw bytes; decoding is left to
// the record package.
package device

import (
	"errors"
	"fmt"
)

const (
	fileDeviceUnknown = 0x22
	methodBuffered    = 0
	fileAnyAccess     = 0

	dumpProcessesFunction = 0x801
)

var IoctlDumpProcesses = ctlCode(fileDeviceUnknown, dumpProcessesFunction, methodBuffered, fileAnyAccess)

var ErrUnsupported = errors.New("control endpoint not supported on this platform")

func ctlCode(deviceType, function, method, access uint32) uint32 {
	return deviceType<<16 | access<<14 | function<<2 | method
}

func checkMax(maxRecords int) error {
	if maxRecords <= 0 {
		return fmt.Errorf("invalid record count %d", maxRecords)
	}

	return nil
}
