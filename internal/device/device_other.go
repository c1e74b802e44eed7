//go:build !linux && !windows

package device

import "fmt"

const DefaultPath = ""

// Unsupported is never returned; it exists so Open has the same shape everywhere.
type Unsupported struct{}

func Open(path string) (*Unsupported, error) {
	return nil, fmt.Errorf("open %q: %w", path, ErrUnsupported)
}

func (Unsupported) Fetch(int) ([]byte, error) { return nil, ErrUnsupported }

func (Unsupported) Close() error { return nil }
