package record

import (
	"fmt"

	"github.com/aquilax/truncate"
)

// DisplayPathLimit is the number of characters an image path is cut to for presentation.
const DisplayPathLimit = 100

const truncationMarker = "..."

// CaptureSource tells which producer mechanism yielded a record.
type CaptureSource uint32

const (
	SourceUnset CaptureSource = iota
	SourceCreateNotify
	SourceImageLoad
	SourceLocateFallback
	SourceUnknown CaptureSource = 9999
)

// ParseCaptureSource maps a raw producer value, anything unrecognised is SourceUnknown.
func ParseCaptureSource(v uint32) CaptureSource {
	switch s := CaptureSource(v); s {
	case SourceUnset, SourceCreateNotify, SourceImageLoad, SourceLocateFallback:
		return s
	default:
		return SourceUnknown
	}
}

func (s CaptureSource) String() string {
	switch s {
	case SourceUnset:
		return "unset"
	case SourceCreateNotify:
		return "create_notify"
	case SourceImageLoad:
		return "image_load"
	case SourceLocateFallback:
		return "locate_fallback"
	default:
		return "unknown"
	}
}

// ProcessRecord is one process observation reported by the producer.
// PID is the identity; the rest depends on what the producer managed to capture.
type ProcessRecord struct {
	PID       uint32
	ParentPID uint32
	ImageBase uint64
	ImageSize uint64
	Source    CaptureSource
	ImagePath string
}

// DisplayPath returns the image path cut to limit characters with a trailing marker.
func (r ProcessRecord) DisplayPath(limit int) string {
	if limit <= 0 {
		limit = DisplayPathLimit
	}

	runes := []rune(r.ImagePath)
	if len(runes) <= limit {
		return r.ImagePath
	}

	// no room for the marker
	if limit <= len(truncationMarker) {
		return string(runes[:limit])
	}

	return truncate.Truncate(r.ImagePath, limit, truncationMarker, truncate.PositionEnd)
}

func (r ProcessRecord) String() string {
	return fmt.Sprintf("pid=%d ppid=%d source=%s image=%q", r.PID, r.ParentPID, r.Source, r.ImagePath)
}
