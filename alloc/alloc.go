// Package alloc implements the tracking allocator of spec.md §4.B: a
// wrapper over ordinary allocation that brackets every block with guard
// bytes and records it in a per-test live-block list, so that leaks and
// buffer overruns become test failures instead of silent corruption.
//
// Go has no manual malloc/free, so "allocation" here means a block handed
// out by this package's own arena — the idiomatic use case is a test that
// exercises code working with manually-managed byte buffers (arena
// allocators, cgo boundaries, wire-protocol scratch space) and wants the
// same guard-byte and leak discipline the reference C library gives native
// code. The arena is the Go analogue of Design Notes §9's "free-list +
// index pairs" alternative to a cyclic doubly-linked block list.
package alloc

import (
	"bytes"
	"fmt"
)

const (
	guardSize = 16
	guardByte = 0xEF
	fillByte  = 0xBA
	freeByte  = 0xCD
)

// Location identifies the call site of an Alloc/Free, decoupled from the
// root package's SourceLocation so this package has no import cycle back
// to it.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Block describes one live allocation: the full backing buffer (leading
// guard zone, user region, trailing guard zone) plus the bookkeeping
// needed to verify and release it.
type Block struct {
	raw      []byte
	userSize int
	Location Location
	seq      uint64
}

// Bytes returns the user-writable region (guard zones excluded). This is
// the slice test code and the code under test should actually use.
func (b *Block) Bytes() []byte {
	return b.raw[guardSize : guardSize+b.userSize]
}

// Size returns the requested user size.
func (b *Block) Size() int { return b.userSize }

// Corrupt deliberately overwrites one byte of a guard zone, for exercising
// GUARD_CORRUPTION detection in tests of this package itself. side 0
// targets the leading guard zone, any other value the trailing one.
func (b *Block) Corrupt(side int, offset int) {
	if side == 0 {
		b.raw[offset%guardSize] ^= 0xFF
		return
	}
	end := len(b.raw)
	b.raw[end-guardSize+offset%guardSize] ^= 0xFF
}

func newBlock(size int, loc Location) *Block {
	raw := make([]byte, guardSize+size+guardSize)
	for i := 0; i < guardSize; i++ {
		raw[i] = guardByte
		raw[len(raw)-guardSize+i] = guardByte
	}
	for i := guardSize; i < guardSize+size; i++ {
		raw[i] = fillByte
	}
	return &Block{raw: raw, userSize: size, Location: loc}
}

func (b *Block) guardsIntact() bool {
	lead := b.raw[:guardSize]
	trail := b.raw[len(b.raw)-guardSize:]
	return bytes.Count(lead, []byte{guardByte}) == guardSize &&
		bytes.Count(trail, []byte{guardByte}) == guardSize
}

// GuardError is returned by Free when a guard zone has been overwritten. It
// carries both the offending free-site and the original allocation site,
// per spec.md's GUARD_CORRUPTION error kind.
type GuardError struct {
	FreeLocation  Location
	AllocLocation Location
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("guard corruption detected at free (%s); block allocated at %s", e.FreeLocation, e.AllocLocation)
}

// Cursor identifies a point in allocation order by sequence number rather
// than by position in the live-block list: a block allocated before the
// checkpoint but freed during the scoped region would shift every later
// block's list index, so a positional cursor would silently stop covering
// the right blocks. The sequence number a block was stamped with at Alloc
// time never changes, so Cursor stays valid across any number of earlier
// frees.
type Cursor uint64

// Allocator is a per-test (or per-group) arena. It is not safe for
// concurrent use — per spec.md §5, at most one test body runs at a time.
type Allocator struct {
	live    []*Block
	nextSeq uint64
}

// New returns an empty Allocator.
func New() *Allocator {
	return &Allocator{}
}

// Alloc returns a new guarded block of size bytes, pattern-filled with
// 0xBA, tracked in the live-block list.
func (a *Allocator) Alloc(size int, loc Location) *Block {
	b := newBlock(size, loc)
	b.seq = a.nextSeq
	a.nextSeq++
	a.live = append(a.live, b)
	return b
}

// ZAlloc is Alloc with the user region zeroed instead of pattern-filled.
func (a *Allocator) ZAlloc(size int, loc Location) *Block {
	b := a.Alloc(size, loc)
	clear(b.Bytes())
	return b
}

// Realloc implements spec.md's realloc semantics: realloc(nil, n) == alloc(n);
// realloc(p, 0) == free(p); otherwise a fresh block is always allocated
// (Open Question (b): never reuse the incoming block's storage, even on
// shrink, so the guard-zone invariant always holds over a block this
// allocator actually produced) with contents copied up to
// min(old_size, new_size), and the old block is freed.
func (a *Allocator) Realloc(b *Block, newSize int, loc Location) (*Block, error) {
	if b == nil {
		return a.Alloc(newSize, loc), nil
	}
	if newSize == 0 {
		return nil, a.Free(b, loc)
	}
	fresh := a.Alloc(newSize, loc)
	n := min(b.userSize, newSize)
	copy(fresh.Bytes(), b.Bytes()[:n])
	if err := a.Free(b, loc); err != nil {
		return fresh, err
	}
	return fresh, nil
}

// Free verifies both guard zones, removes b from the live-block list, and
// clobbers the user region with 0xCD. A guard-zone mismatch is reported but
// the block is still removed from the live set (the corruption is reported
// once, at the free site that observed it).
func (a *Allocator) Free(b *Block, loc Location) error {
	idx := -1
	for i, live := range a.live {
		if live == b {
			idx = i
			break
		}
	}
	var err error
	if !b.guardsIntact() {
		err = &GuardError{FreeLocation: loc, AllocLocation: b.Location}
	}
	if idx >= 0 {
		a.live = append(a.live[:idx], a.live[idx+1:]...)
	}
	for i := range b.Bytes() {
		b.Bytes()[i] = freeByte
	}
	return err
}

// LiveCount returns the number of currently tracked (unfreed) blocks.
func (a *Allocator) LiveCount() int { return len(a.live) }

// Checkpoint returns a cursor usable with DisplayAndCountSince/FreeSince to
// scope leak detection to blocks allocated after this call, regardless of
// any blocks allocated before it that are later freed.
func (a *Allocator) Checkpoint() Cursor {
	return Cursor(a.nextSeq)
}

// DisplayAndCountSince returns the still-live blocks allocated since cursor
// was taken, for the leak audit to report (one diagnostic per block, by the
// caller).
func (a *Allocator) DisplayAndCountSince(cursor Cursor) []*Block {
	var out []*Block
	for _, b := range a.live {
		if b.seq >= uint64(cursor) {
			out = append(out, b)
		}
	}
	return out
}

// FreeSince force-frees every block allocated after cursor was taken, to
// avoid leaked blocks contaminating the next test. Guard-zone errors
// encountered along the way are returned together.
func (a *Allocator) FreeSince(cursor Cursor) []error {
	leaked := a.DisplayAndCountSince(cursor)
	var errs []error
	for _, b := range leaked {
		if err := a.Free(b, b.Location); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
