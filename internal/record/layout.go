package record

import (
	"encoding/binary"
	"fmt"
)

const MaxPath = 260

// RecordSize is the size in bytes of one record in the pinned layout, tail padding included.
const RecordSize = 552

// LayoutVersion identifies the producer record revision this client is built against.
// Revision 1 lacked capture_source and is not supported.
const LayoutVersion = 2

type Field struct {
	Name   string
	Offset int
	Width  int
}

func (f Field) end() int { return f.Offset + f.Width }

type Schema struct {
	Version int
	Size    int
	Order   binary.ByteOrder
	Fields  []Field
}

var (
	fieldPID           = Field{Name: "pid", Offset: 0, Width: 4}
	fieldParentPID     = Field{Name: "ppid", Offset: 4, Width: 4}
	fieldImageBase     = Field{Name: "image_base", Offset: 8, Width: 8}
	fieldImageSize     = Field{Name: "image_size", Offset: 16, Width: 8}
	fieldCaptureSource = Field{Name: "capture_source", Offset: 24, Width: 4}
	fieldImageFileName = Field{Name: "image_file_name", Offset: 28, Width: MaxPath * 2}
)

var Layout = Schema{
	Version: LayoutVersion,
	Size:    RecordSize,
	Order:   binary.NativeEndian,
	Fields: []Field{
		fieldPID,
		fieldParentPID,
		fieldImageBase,
		fieldImageSize,
		fieldCaptureSource,
		fieldImageFileName,
	},
}

// Validate checks that fields are ordered, do not overlap and fit in the record.
func (s Schema) Validate() error {
	prev := 0

	for _, f := range s.Fields {
		if f.Width <= 0 {
			return fmt.Errorf("field %s: non-positive width %d", f.Name, f.Width)
		}

		if f.Offset < prev {
			return fmt.Errorf("field %s: offset %d overlaps previous field ending at %d", f.Name, f.Offset, prev)
		}

		if f.end() > s.Size {
			return fmt.Errorf("field %s: ends at %d beyond record size %d", f.Name, f.end(), s.Size)
		}

		prev = f.end()
	}

	return nil
}

func init() {
	if err := Layout.Validate(); err != nil {
		panic(fmt.Sprintf("record layout v%d: %v", Layout.Version, err))
	}
}
