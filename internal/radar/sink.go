package radar

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/ihippik/cosmos-radar/internal/record"
)

// EventSink receives deduplicated records in emission order.
type EventSink interface {
	Emit(r record.ProcessRecord) error
}

type SinkFunc func(r record.ProcessRecord) error

func (f SinkFunc) Emit(r record.ProcessRecord) error { return f(r) }

// ConsoleSink writes one line per record.
type ConsoleSink struct {
	w         io.Writer
	pathLimit int
}

func NewConsoleSink(w io.Writer, pathLimit int) *ConsoleSink {
	return &ConsoleSink{w: w, pathLimit: pathLimit}
}

func (s *ConsoleSink) Emit(r record.ProcessRecord) error {
	_, err := fmt.Fprintf(
		s.w,
		"PID: %6d | PPID: %6d | Base: %#x | Size: %s | Source: %s | Image: %s\n",
		r.PID,
		r.ParentPID,
		r.ImageBase,
		humanize.IBytes(r.ImageSize),
		r.Source,
		r.DisplayPath(s.pathLimit),
	)

	return err
}

type LogSink struct {
	log       *slog.Logger
	pathLimit int
}

func NewLogSink(log *slog.Logger, pathLimit int) *LogSink {
	return &LogSink{log: log, pathLimit: pathLimit}
}

func (s *LogSink) Emit(r record.ProcessRecord) error {
	s.log.Info(
		"process observed",
		slog.Any("pid", r.PID),
		slog.Any("ppid", r.ParentPID),
		slog.String("image_base", fmt.Sprintf("%#x", r.ImageBase)),
		slog.Uint64("image_size", r.ImageSize),
		slog.String("source", r.Source.String()),
		slog.String("image", r.DisplayPath(s.pathLimit)),
	)

	return nil
}
