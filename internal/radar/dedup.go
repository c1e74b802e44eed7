package radar

import mapset "github.com/deckarep/golang-set/v2"

// Deduplicator remembers every PID emitted during the session.
//
// Entries never expire. A PID reused by the OS for a new process after the
// original exited is reported as already seen; the producer sends no exit
// events that would allow telling the two apart.
type Deduplicator struct {
	seen mapset.Set[uint32]
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: mapset.NewThreadUnsafeSet[uint32]()}
}

// Observe reports whether pid is presented for the first time.
func (d *Deduplicator) Observe(pid uint32) bool {
	return d.seen.Add(pid)
}

func (d *Deduplicator) Len() int {
	return d.seen.Cardinality()
}
