//go:build linux

package device

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"golang.org/x/sys/unix"
)

// DefaultPath is where the producer pins its process table.
const DefaultPath = "/sys/fs/bpf/cosmos/procs"

type PinnedMap struct {
	m *ebpf.Map
}

// Open loads an existing pinned map read-only. It never creates one.
func Open(path string) (*PinnedMap, error) {
	if err := checkBPFFS(path); err != nil {
		return nil, err
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("remove memlock: %w", err)
	}

	m, err := ebpf.LoadPinnedMap(path, &ebpf.LoadPinOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load pinned map: %w", err)
	}

	if m.Type() != ebpf.Hash && m.Type() != ebpf.LRUHash {
		m.Close()
		return nil, fmt.Errorf("unexpected map type %s", m.Type())
	}

	return &PinnedMap{m: m}, nil
}

func (p *PinnedMap) RecordSize() int {
	return int(p.m.ValueSize())
}

func (p *PinnedMap) Fetch(maxRecords int) ([]byte, error) {
	if err := checkMax(maxRecords); err != nil {
		return nil, err
	}

	var (
		key   rawValue
		value rawValue
		count int
	)

	size := p.RecordSize()
	out := make([]byte, 0, maxRecords*size)

	iter := p.m.Iterate()
	for count < maxRecords && iter.Next(&key, &value) {
		out = append(out, value...)
		count++
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate map: %w", err)
	}

	return out, nil
}

func (p *PinnedMap) Close() error {
	return p.m.Close()
}

// rawValue keeps map keys and values as the bytes the kernel returned.
type rawValue []byte

func (r *rawValue) UnmarshalBinary(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

func checkBPFFS(path string) error {
	var st unix.Statfs_t

	if err := unix.Statfs(path, &st); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}

	if uint32(st.Type) != uint32(unix.BPF_FS_MAGIC) {
		return fmt.Errorf("%s is not on a bpf filesystem", path)
	}

	return nil
}
