package symbols

import (
	"log/slog"

	"github.com/skdltmxn/codeview-go/debuginfo"
	"github.com/skdltmxn/codeview-go/internal/stream"
)

// location identifies where a variable lives: a register id, or a stack
// offset when stack is set.
type location struct {
	stack    bool
	register uint16
	offset   int32
}

// liveRange is the def-range record currently being extended.
type liveRange struct {
	rng   *AddrRange
	loc   location
	start uint64
	high  uint64
}

// emitLocal adds an S_LOCAL for l followed by one def-range record per
// run of contiguous sub-ranges in the same location. Constants are not
// emitted. A run longer than the 16-bit range length is clamped and the
// rest of the variable's ranges are dropped.
func (b *Builder) emitLocal(fn *function, l *debuginfo.LocalInfo) error {
	if l.Constant {
		return nil
	}
	ti, err := b.types.IndexFor(l.Type)
	if err != nil {
		return err
	}
	var flags LocalFlags
	if l.Param {
		flags = LocalIsParam
	}
	b.add(&LocalSym{Type: ti, Flags: flags, Name: l.Name})

	var cur *liveRange
	for _, lr := range l.Ranges {
		if lr.Hi <= lr.Lo {
			continue
		}
		loc, ok := b.resolveLocation(lr.Location)
		if !ok {
			b.log.Warn("skipping live range in unmapped register",
				slog.String("method", fn.name),
				slog.String("local", l.Name),
				slog.String("register", lr.Location.Register))
			cur = nil
			continue
		}

		if cur != nil && cur.loc == loc && lr.Lo == cur.high {
			if lr.Hi-cur.start > stream.MaxRecordLength {
				cur.rng.Length = stream.MaxRecordLength
				return nil
			}
			cur.rng.Length = uint16(lr.Hi - cur.start)
			cur.high = lr.Hi
			continue
		}

		length := lr.Hi - lr.Lo
		clamped := length > stream.MaxRecordLength
		if clamped {
			length = stream.MaxRecordLength
		}
		rng := AddrRange{Symbol: fn.linkage, Offset: uint32(lr.Lo), Length: uint16(length)}
		if loc.stack {
			rec := &DefRangeFramePointerRelSym{Offset: loc.offset, Range: rng}
			b.add(rec)
			cur = &liveRange{rng: &rec.Range}
		} else {
			rec := &DefRangeRegisterSym{Register: loc.register, Range: rng}
			b.add(rec)
			cur = &liveRange{rng: &rec.Range}
		}
		cur.loc, cur.start, cur.high = loc, lr.Lo, lr.Hi
		if clamped {
			return nil
		}
	}
	return nil
}

func (b *Builder) resolveLocation(loc debuginfo.Location) (location, bool) {
	if loc.Kind == debuginfo.LocationStack {
		return location{stack: true, offset: loc.Offset}, true
	}
	id, ok := RegisterID(loc.Register)
	return location{register: id}, ok
}
