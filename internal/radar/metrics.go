package radar

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	fetches        prometheus.Counter
	emptyFetches   prometheus.Counter
	recordsDecoded prometheus.Counter
	recordsEmitted prometheus.Counter
	duplicates     prometheus.Counter
	decodeErrors   prometheus.Counter
	channelFaults  prometheus.Counter
	reconnects     prometheus.Counter
	sinkErrors     prometheus.Counter
	seenProcesses  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_fetches_total",
			Help: "The total number of dump requests issued to the producer",
		}),
		emptyFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_empty_fetches_total",
			Help: "The total number of dump requests that returned no records",
		}),
		recordsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_records_decoded_total",
			Help: "The total number of records decoded from producer responses",
		}),
		recordsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_records_emitted_total",
			Help: "The total number of new process records sent to the sink",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_records_duplicate_total",
			Help: "The total number of records suppressed as already seen",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_decode_errors_total",
			Help: "The total number of producer responses violating the record layout",
		}),
		channelFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_channel_faults_total",
			Help: "The total number of control channel i/o failures",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_reconnects_total",
			Help: "The total number of successful control channel reconnects",
		}),
		sinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "radar_sink_errors_total",
			Help: "The total number of records the sink failed to accept",
		}),
		seenProcesses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "radar_seen_processes",
			Help: "The number of distinct process ids observed this session",
		}),
	}
}
