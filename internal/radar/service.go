package radar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ihippik/cosmos-radar/internal/record"
)

const (
	DefaultMaxRecords   = 128
	DefaultPollInterval = 200 * time.Millisecond
	DefaultIdleInterval = time.Second
)

// Options tune the poll loop. Zero values fall back to the defaults.
type Options struct {
	Path         string
	MaxRecords   int
	PollInterval time.Duration
	IdleInterval time.Duration

	// ReconnectAttempts enables reopening the channel after an i/o failure.
	// Zero keeps a faulted channel terminal.
	ReconnectAttempts uint64
}

type loopState int

const (
	stateIdle loopState = iota
	stateFetching
	stateDecoding
	stateEmitting
	stateFaulted
)

func (s loopState) String() string {
	return [...]string{"idle", "fetching", "decoding", "emitting", "faulted"}[s]
}

// Service polls the producer and hands every newly seen process to the sink.
// One Service owns one channel at a time and must not be started twice.
type Service struct {
	log     *slog.Logger
	opener  Opener
	sink    EventSink
	metrics *Metrics
	opts    Options
	seen    *Deduplicator

	sleep      func(ctx context.Context, d time.Duration) error
	newBackOff func() backoff.BackOff
}

func NewService(log *slog.Logger, opener Opener, sink EventSink, metrics *Metrics, opts Options) *Service {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}

	return &Service{
		log:        log.With(slog.String("path", opts.Path)),
		opener:     opener,
		sink:       sink,
		metrics:    metrics,
		opts:       opts,
		seen:       NewDeduplicator(),
		sleep:      wait,
		newBackOff: newExponentialBackOff,
	}
}

// Start opens the control channel and polls until ctx is done or the channel faults.
// It returns nil only on cancellation; terminal errors are left to the caller to report.
func (s *Service) Start(ctx context.Context) error {
	handle, err := s.open()
	if err != nil {
		return err
	}

	s.log.Info("waiting for events..", slog.Int("max_records", s.opts.MaxRecords))

	for {
		err = s.run(ctx, handle)
		if err == nil {
			s.log.Info("graceful shutdown", slog.Int("seen", s.seen.Len()))
			return nil
		}

		if s.opts.ReconnectAttempts == 0 || !errors.Is(err, ErrIOFailed) {
			return err
		}

		s.log.Warn("control channel faulted, reconnecting", slog.Any("error", err))

		handle, err = s.reconnect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}
	}
}

func (s *Service) open() (*ChannelHandle, error) {
	handle, err := OpenChannel(s.log, s.opts.Path, s.opener)
	if err != nil {
		return nil, err
	}

	if size, ok := handle.ReportedRecordSize(); ok {
		if err := record.Verify(size); err != nil {
			handle.Fault()
			handle.Close()

			return nil, fmt.Errorf("verify layout: %w", err)
		}
	}

	return handle, nil
}

func (s *Service) reconnect(ctx context.Context) (*ChannelHandle, error) {
	var handle *ChannelHandle

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.opts.ReconnectAttempts-1), ctx)

	err := backoff.RetryNotify(func() error {
		h, err := s.open()
		if err != nil {
			if errors.Is(err, record.ErrLayoutMismatch) {
				return backoff.Permanent(err)
			}

			return err
		}

		handle = h

		return nil
	}, policy, func(err error, d time.Duration) {
		s.log.Warn("reconnect failed", slog.Any("error", err), slog.Duration("retry_in", d))
	})
	if err != nil {
		return nil, fmt.Errorf("reconnect: %w", err)
	}

	s.metrics.reconnects.Inc()
	s.log.Info("control channel reconnected")

	return handle, nil
}

// run drives fetch, decode and emit cycles on one handle and releases it on return.
func (s *Service) run(ctx context.Context, handle *ChannelHandle) error {
	defer handle.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.enter(stateFetching)

		buf, err := handle.Fetch(s.opts.MaxRecords)
		s.metrics.fetches.Inc()

		if err != nil {
			s.metrics.channelFaults.Inc()
			s.enter(stateFaulted)

			return err
		}

		interval := s.opts.PollInterval

		if len(buf) == 0 {
			s.metrics.emptyFetches.Inc()
			interval = s.opts.IdleInterval
		} else {
			s.enter(stateDecoding)

			records, err := record.Decode(buf, record.RecordSize, s.opts.MaxRecords)
			if err != nil {
				s.metrics.decodeErrors.Inc()
				handle.Fault()
				s.enter(stateFaulted)

				return fmt.Errorf("decode response: %w", err)
			}

			s.enter(stateEmitting)
			s.emit(records)
		}

		s.enter(stateIdle)

		if err := s.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

func (s *Service) emit(records []record.ProcessRecord) {
	s.metrics.recordsDecoded.Add(float64(len(records)))

	for _, r := range records {
		if !s.seen.Observe(r.PID) {
			s.metrics.duplicates.Inc()
			continue
		}

		if err := s.sink.Emit(r); err != nil {
			s.metrics.sinkErrors.Inc()
			s.log.Error("failed to emit record", slog.Any("pid", r.PID), slog.Any("error", err))

			continue
		}

		s.metrics.recordsEmitted.Inc()
	}

	s.metrics.seenProcesses.Set(float64(s.seen.Len()))
}

func (s *Service) enter(state loopState) {
	s.log.Debug("poll state", slog.String("state", state.String()))
}

func newExponentialBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
