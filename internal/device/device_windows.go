//go:build windows

package device

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/ihippik/cosmos-radar/internal/record"
)

// DefaultPath is the symbolic link created by the driver.
const DefaultPath = `\\.\CosmosLink`

type Driver struct {
	handle windows.Handle
}

// Open opens an existing control device for read and write. It never creates one.
func Open(path string) (*Driver, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("encode path: %w", err)
	}

	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	return &Driver{handle: h}, nil
}

func (d *Driver) Fetch(maxRecords int) ([]byte, error) {
	if err := checkMax(maxRecords); err != nil {
		return nil, err
	}

	buf := make([]byte, maxRecords*record.RecordSize)

	var returned uint32

	if err := windows.DeviceIoControl(
		d.handle,
		IoctlDumpProcesses,
		nil,
		0,
		&buf[0],
		uint32(len(buf)),
		&returned,
		nil,
	); err != nil {
		return nil, fmt.Errorf("device io control: %w", err)
	}

	if int(returned) > len(buf) {
		return nil, fmt.Errorf("driver reported %d bytes for a %d byte buffer", returned, len(buf))
	}

	return buf[:returned], nil
}

func (d *Driver) Close() error {
	if d.handle == windows.InvalidHandle {
		return nil
	}

	err := windows.CloseHandle(d.handle)
	d.handle = windows.InvalidHandle

	return err
}
