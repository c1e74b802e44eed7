package record

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

var (
	ErrMisaligned     = errors.New("buffer is not a multiple of record size")
	ErrOverCapacity   = errors.New("more records than requested")
	ErrLayoutMismatch = errors.New("record layout mismatch")
)

// DecodeError is a producer/consumer contract violation.
type DecodeError struct {
	Kind     error
	Expected int
	Actual   int
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrMisaligned:
		return fmt.Sprintf("%v: %d bytes, record size %d", e.Kind, e.Actual, e.Expected)
	case ErrOverCapacity:
		return fmt.Sprintf("%v: got %d records, capacity %d", e.Kind, e.Actual, e.Expected)
	default:
		return fmt.Sprintf("%v: expected record size %d (layout v%d), got %d", e.Kind, e.Expected, Layout.Version, e.Actual)
	}
}

func (e *DecodeError) Unwrap() error { return e.Kind }

// Verify checks a record size reported by the producer against the pinned layout.
func Verify(reported int) error {
	if reported != RecordSize {
		return &DecodeError{Kind: ErrLayoutMismatch, Expected: RecordSize, Actual: reported}
	}

	return nil
}

// Decode turns a producer response into records.
// A buffer violating the contract yields no records at all.
func Decode(buf []byte, recordSize, capacity int) ([]ProcessRecord, error) {
	if err := Verify(recordSize); err != nil {
		return nil, err
	}

	if len(buf)%recordSize != 0 {
		return nil, &DecodeError{Kind: ErrMisaligned, Expected: recordSize, Actual: len(buf)}
	}

	count := len(buf) / recordSize
	if count > capacity {
		return nil, &DecodeError{Kind: ErrOverCapacity, Expected: capacity, Actual: count}
	}

	records := make([]ProcessRecord, 0, count)

	for i := 0; i < count; i++ {
		records = append(records, decodeOne(buf[i*recordSize:(i+1)*recordSize]))
	}

	return records, nil
}

func decodeOne(raw []byte) ProcessRecord {
	order := Layout.Order

	return ProcessRecord{
		PID:       order.Uint32(slice(raw, fieldPID)),
		ParentPID: order.Uint32(slice(raw, fieldParentPID)),
		ImageBase: order.Uint64(slice(raw, fieldImageBase)),
		ImageSize: order.Uint64(slice(raw, fieldImageSize)),
		Source:    ParseCaptureSource(order.Uint32(slice(raw, fieldCaptureSource))),
		ImagePath: decodeWide(slice(raw, fieldImageFileName)),
	}
}

// decodeWide reads a NUL terminated UTF-16 field. Without a terminator the whole
// field is used; invalid surrogates become U+FFFD.
func decodeWide(b []byte) string {
	units := make([]uint16, 0, len(b)/2)

	for i := 0; i+1 < len(b); i += 2 {
		u := Layout.Order.Uint16(b[i:])
		if u == 0 {
			break
		}

		units = append(units, u)
	}

	return string(utf16.Decode(units))
}

// Encode builds one record in the pinned layout.
func Encode(r ProcessRecord) []byte {
	return AppendEncoded(make([]byte, 0, RecordSize), r)
}

// AppendEncoded cuts image paths longer than MaxPath-1 code units, as the producer does.
func AppendEncoded(buf []byte, r ProcessRecord) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, RecordSize)...)
	raw := buf[start:]
	order := Layout.Order

	order.PutUint32(slice(raw, fieldPID), r.PID)
	order.PutUint32(slice(raw, fieldParentPID), r.ParentPID)
	order.PutUint64(slice(raw, fieldImageBase), r.ImageBase)
	order.PutUint64(slice(raw, fieldImageSize), r.ImageSize)
	order.PutUint32(slice(raw, fieldCaptureSource), uint32(r.Source))

	units := utf16.Encode([]rune(r.ImagePath))
	if len(units) > MaxPath-1 {
		units = units[:MaxPath-1]
	}

	name := slice(raw, fieldImageFileName)
	for i, u := range units {
		order.PutUint16(name[i*2:], u)
	}

	return buf
}

func slice(raw []byte, f Field) []byte {
	return raw[f.Offset:f.end()]
}
