// Package inspect captures point-in-time views of an engine's shape tree,
// heap and lookup sites, and encodes them as canonical CBOR.
package inspect

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/chazu/morph/vm"
)

var log = commonlog.GetLogger("morph.inspect")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Snapshot is a serializable view of one engine.
type Snapshot struct {
	EngineID string         `cbor:"1,keyasint"`
	Options  Options        `cbor:"2,keyasint"`
	Shapes   []ShapeInfo    `cbor:"3,keyasint,omitempty"`
	Heap     HeapInfo       `cbor:"4,keyasint"`
	Counters Counters       `cbor:"5,keyasint"`
	Lookups  vm.LookupStats `cbor:"6,keyasint"`
}

// Options mirrors the engine options in effect.
type Options struct {
	MinDense     uint32 `cbor:"1,keyasint"`
	GrowthFactor uint32 `cbor:"2,keyasint"`
	SparseLength uint32 `cbor:"3,keyasint"`
}

// ShapeInfo describes one shape.
type ShapeInfo struct {
	ID          uint32   `cbor:"1,keyasint"`
	Parent      uint32   `cbor:"2,keyasint,omitempty"` // 0 for roots
	Kind        string   `cbor:"3,keyasint"`
	Names       []string `cbor:"4,keyasint,omitempty"`
	Attrs       []string `cbor:"5,keyasint,omitempty"`
	Transitions int      `cbor:"6,keyasint,omitempty"`
	Buckets     int      `cbor:"7,keyasint"`
}

// HeapInfo describes handle usage.
type HeapInfo struct {
	Live        int `cbor:"1,keyasint"`
	FreeHandles int `cbor:"2,keyasint"`
	Capacity    int `cbor:"3,keyasint"`
}

// Counters mirrors vm.EngineStats.
type Counters struct {
	ShapesCreated     uint64 `cbor:"1,keyasint"`
	Transitions       uint64 `cbor:"2,keyasint"`
	RemovalRebuilds   uint64 `cbor:"3,keyasint"`
	SparseConversions uint64 `cbor:"4,keyasint"`
	GenericSites      uint64 `cbor:"5,keyasint"`
	Sweeps            uint64 `cbor:"6,keyasint"`
}

// Take captures the engine's current state. Lookup statistics are
// aggregated over the given tables; nil tables are skipped.
func Take(e *vm.Engine, tables ...*vm.LookupTable) *Snapshot {
	opts := e.Options()
	stats := e.Stats()
	s := &Snapshot{
		EngineID: e.ID.String(),
		Options: Options{
			MinDense:     opts.MinDense,
			GrowthFactor: opts.GrowthFactor,
			SparseLength: opts.SparseLength,
		},
		Heap: HeapInfo{
			Live:        e.Heap().Live(),
			FreeHandles: e.Heap().FreeHandles(),
			Capacity:    e.Heap().Capacity(),
		},
		Counters: Counters{
			ShapesCreated:     stats.ShapesCreated,
			Transitions:       stats.Transitions,
			RemovalRebuilds:   stats.RemovalRebuilds,
			SparseConversions: stats.SparseConversions,
			GenericSites:      stats.GenericSites,
			Sweeps:            stats.Sweeps,
		},
		Lookups: vm.CollectStats(tables...),
	}

	names := e.Names()
	e.WalkShapes(func(sh *vm.Shape) {
		info := ShapeInfo{
			ID:          sh.ID(),
			Kind:        sh.Kind().String(),
			Transitions: sh.TransitionCount(),
			Buckets:     sh.Table().Buckets(),
		}
		if p := sh.Parent(); p != nil {
			info.Parent = p.ID()
		}
		for slot := 0; slot < sh.Size(); slot++ {
			info.Names = append(info.Names, names.String(sh.NameAt(slot)))
			info.Attrs = append(info.Attrs, sh.AttrsAt(slot).String())
		}
		s.Shapes = append(s.Shapes, info)
	})
	slices.SortFunc(s.Shapes, func(a, b ShapeInfo) int { return cmp.Compare(a.ID, b.ID) })
	return s
}

// Shape returns the recorded shape with the given id.
func (s *Snapshot) Shape(id uint32) (ShapeInfo, bool) {
	i, ok := slices.BinarySearchFunc(s.Shapes, id, func(sh ShapeInfo, id uint32) int {
		return cmp.Compare(sh.ID, id)
	})
	if !ok {
		return ShapeInfo{}, false
	}
	return s.Shapes[i], true
}

// Depth returns the number of parent edges between the shape and its root,
// or -1 if the shape is unknown.
func (s *Snapshot) Depth(id uint32) int {
	depth := 0
	for {
		sh, ok := s.Shape(id)
		if !ok {
			return -1
		}
		if sh.Parent == 0 {
			return depth
		}
		id = sh.Parent
		depth++
	}
}

// Marshal encodes the snapshot as canonical CBOR.
func Marshal(s *Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal decodes a snapshot produced by Marshal.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// WriteFile encodes the snapshot to path.
func WriteFile(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("inspect: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	log.Infof("snapshot of engine %s written to %s (%d bytes, %d shapes)", s.EngineID, path, len(data), len(s.Shapes))
	return nil
}

// ReadFile decodes a snapshot written by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	return Unmarshal(data)
}

// Summary renders a short human-readable report.
func (s *Snapshot) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "engine %s\n", s.EngineID)
	fmt.Fprintf(&b, "  shapes:   %d recorded, %d created, %d transitions, %d removal rebuilds\n",
		len(s.Shapes), s.Counters.ShapesCreated, s.Counters.Transitions, s.Counters.RemovalRebuilds)
	fmt.Fprintf(&b, "  heap:     %d live, %d free, %d capacity, %d sweeps\n",
		s.Heap.Live, s.Heap.FreeHandles, s.Heap.Capacity, s.Counters.Sweeps)
	fmt.Fprintf(&b, "  arrays:   %d sparse conversions\n", s.Counters.SparseConversions)

	l := s.Lookups
	fmt.Fprintf(&b, "  lookups:  %d sites (%d uninitialized, %d monomorphic, %d generic)\n",
		l.Sites, l.Uninitialized, l.Monomorphic, l.Generic)
	fmt.Fprintf(&b, "            by level %v, %d hits, %d misses, %d invalidations, %.1f%% hit rate\n",
		l.ByLevel, l.Hits, l.Misses, l.Invalidations, l.HitRate)

	deepest, at := 0, uint32(0)
	for _, sh := range s.Shapes {
		if d := s.Depth(sh.ID); d > deepest {
			deepest, at = d, sh.ID
		}
	}
	if at != 0 {
		fmt.Fprintf(&b, "  deepest:  shape %d at depth %d\n", at, deepest)
	}
	return b.String()
}
