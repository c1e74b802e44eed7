package radar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ihippik/cosmos-radar/internal/record"
)

var errScriptDone = errors.New("script exhausted")

type response struct {
	buf []byte
	err error
}

type fakeChannel struct {
	script     []response
	fetches    int
	closes     int
	recordSize int
}

func (c *fakeChannel) Fetch(int) ([]byte, error) {
	if c.fetches >= len(c.script) {
		c.fetches++
		return nil, errScriptDone
	}

	r := c.script[c.fetches]
	c.fetches++

	return r.buf, r.err
}

func (c *fakeChannel) Close() error {
	c.closes++
	return nil
}

type sizedChannel struct {
	*fakeChannel
}

func (c sizedChannel) RecordSize() int { return c.recordSize }

// openerOf hands out channels in order and fails once they run out.
func openerOf(chans ...Channel) (Opener, *int) {
	calls := 0

	return func(string) (Channel, error) {
		calls++
		if calls > len(chans) {
			return nil, errors.New("the system cannot find the file specified")
		}

		return chans[calls-1], nil
	}, &calls
}

type collectSink struct {
	records []record.ProcessRecord
}

func (s *collectSink) Emit(r record.ProcessRecord) error {
	s.records = append(s.records, r)
	return nil
}

func (s *collectSink) pids() []uint32 {
	out := make([]uint32, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.PID)
	}

	return out
}

// sleepRecorder stands in for the timer. It cancels the context on call number stopAt.
type sleepRecorder struct {
	cancel context.CancelFunc
	stopAt int
	waits  []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)

	if len(r.waits) == r.stopAt {
		r.cancel()
	}

	return ctx.Err()
}

func batch(pids ...uint32) []byte {
	var buf []byte
	for _, pid := range pids {
		buf = record.AppendEncoded(buf, record.ProcessRecord{
			PID:       pid,
			ParentPID: 4,
			Source:    record.SourceCreateNotify,
			ImagePath: `C:\Windows\System32\svchost.exe`,
		})
	}

	return buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(opener Opener, sink EventSink, opts Options) (*Service, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())

	svc := NewService(discardLogger(), opener, sink, metrics, opts)
	svc.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	return svc, metrics
}
