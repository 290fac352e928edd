package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strconv"
	"time"

	"github.com/skosovsky/promptcatalog"
)

// snapshotEntry pairs a definition with the contract derived from it, so a caller always
// validates against the contract of the definition it renders.
type snapshotEntry struct {
	def      *promptcatalog.Definition
	contract promptcatalog.Contract
}

// Snapshot is one immutable result of a load: the name → definition mapping in discovery order.
// Holding a Snapshot pins its definitions; reloads never mutate it.
type Snapshot struct {
	entries    map[string]snapshotEntry
	names      []string
	failures   []error
	generation uint64
	loadedAt   time.Time
	digest     string
}

func newSnapshot(defs []*promptcatalog.Definition, failures []error, generation uint64, now time.Time) *Snapshot {
	s := &Snapshot{
		entries:    make(map[string]snapshotEntry, len(defs)),
		names:      make([]string, 0, len(defs)),
		failures:   failures,
		generation: generation,
		loadedAt:   now,
	}
	h := sha256.New()
	for _, d := range defs {
		s.entries[d.Name] = snapshotEntry{def: d, contract: promptcatalog.BuildContract(d.Variables)}
		s.names = append(s.names, d.Name)
		hashDefinition(h, d)
	}
	s.digest = hex.EncodeToString(h.Sum(nil))
	return s
}

// hashDefinition writes every field that affects rendering or metadata, length-prefixed.
func hashDefinition(h hash.Hash, d *promptcatalog.Definition) {
	write := func(s string) {
		_, _ = h.Write([]byte(strconv.Itoa(len(s))))
		_, _ = h.Write([]byte{':'})
		_, _ = h.Write([]byte(s))
	}
	write(d.Name)
	write(d.Description)
	write(d.Template)
	for _, v := range d.Variables {
		write(v.Name)
		write(v.Description)
		write(v.Type)
		write(strconv.FormatBool(v.Required))
		if v.Default != nil {
			write("=" + *v.Default)
		} else {
			write("-")
		}
	}
	write(fmt.Sprintf("vars:%d", len(d.Variables)))
}

// Get returns a copy of the named definition, or ErrNotFound.
func (s *Snapshot) Get(name string) (*promptcatalog.Definition, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", promptcatalog.ErrNotFound, name)
	}
	return e.def.Clone(), nil
}

// Entry returns the named definition and its contract without copying.
// The definition must be treated as read-only.
func (s *Snapshot) Entry(name string) (*promptcatalog.Definition, promptcatalog.Contract, bool) {
	e, ok := s.entries[name]
	return e.def, e.contract, ok
}

// Names returns definition names in discovery order.
func (s *Snapshot) Names() []string { return slices.Clone(s.names) }

// Len returns the number of definitions.
func (s *Snapshot) Len() int { return len(s.names) }

// Failures returns the per-entry errors skipped during the load that produced s.
func (s *Snapshot) Failures() []error { return slices.Clone(s.failures) }

// Generation is 0 for the initial empty snapshot and increases by one per swap.
func (s *Snapshot) Generation() uint64 { return s.generation }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Digest is a SHA-256 over names and definition fields in order; equal content gives equal digests.
func (s *Snapshot) Digest() string { return s.digest }
