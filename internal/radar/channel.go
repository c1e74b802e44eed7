package radar

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrOpenFailed = errors.New("open control channel")
	ErrIOFailed   = errors.New("control channel i/o")
)

type Channel interface {
	Fetch(maxRecords int) ([]byte, error)
	Close() error
}

type RecordSizer interface {
	RecordSize() int
}

// Opener opens the endpoint at path. It must not create the endpoint.
type Opener func(path string) (Channel, error)

type ChannelError struct {
	Kind error
	Path string
	Err  error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%v %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type ChannelState int

const (
	Disconnected ChannelState = iota
	Connected
	Faulted
)

func (s ChannelState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("ChannelState(%d)", int(s))
	}
}

// ChannelHandle exclusively owns an open Channel. Close releases it exactly once
// and is safe to defer on every path.
type ChannelHandle struct {
	log   *slog.Logger
	path  string
	ch    Channel
	state ChannelState
	once  sync.Once
}

func OpenChannel(log *slog.Logger, path string, opener Opener) (*ChannelHandle, error) {
	ch, err := opener(path)
	if err != nil {
		return nil, &ChannelError{Kind: ErrOpenFailed, Path: path, Err: err}
	}

	if ch == nil {
		return nil, &ChannelError{Kind: ErrOpenFailed, Path: path, Err: errors.New("opener returned no channel")}
	}

	log.Debug("control channel opened", slog.String("path", path))

	return &ChannelHandle{
		log:   log,
		path:  path,
		ch:    ch,
		state: Connected,
	}, nil
}

func (h *ChannelHandle) State() ChannelState { return h.state }

func (h *ChannelHandle) Path() string { return h.path }

func (h *ChannelHandle) ReportedRecordSize() (int, bool) {
	sizer, ok := h.ch.(RecordSizer)
	if !ok {
		return 0, false
	}

	return sizer.RecordSize(), true
}

func (h *ChannelHandle) Fetch(maxRecords int) ([]byte, error) {
	if h.state != Connected {
		return nil, &ChannelError{Kind: ErrIOFailed, Path: h.path, Err: fmt.Errorf("channel is %s", h.state)}
	}

	buf, err := h.ch.Fetch(maxRecords)
	if err != nil {
		h.state = Faulted
		return nil, &ChannelError{Kind: ErrIOFailed, Path: h.path, Err: err}
	}

	return buf, nil
}

// Fault marks the handle unusable after a contract violation.
func (h *ChannelHandle) Fault() {
	if h.state == Connected {
		h.state = Faulted
	}
}

func (h *ChannelHandle) Close() {
	h.once.Do(func() {
		if err := h.ch.Close(); err != nil {
			h.log.Warn("close control channel", slog.String("path", h.path), slog.Any("error", err))
		}

		if h.state == Connected {
			h.state = Disconnected
		}

		h.log.Debug("control channel released", slog.String("path", h.path))
	})
}
