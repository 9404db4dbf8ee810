package h5lib

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/message"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
)

// Reclaim frees every VL payload and string reachable from the elements of
// buf selected by space, nested payloads first. Slots are left as they are,
// so reclaiming the same buffer twice fails on the first stale pointer.
func (l *Library) Reclaim(memType, space ID, buf native.Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	th, err := l.lookup(memType, KindDatatype)
	if err != nil {
		return err
	}
	sh, err := l.lookup(space, KindDataspace)
	if err != nil {
		return err
	}
	dt := th.dt
	if !containsVL(dt) {
		return nil
	}

	freed := 0
	var errs []error
	for _, idx := range sh.space.SelectedIndices() {
		p := buf + native.Ptr(idx*uint64(dt.Size))
		n, err := l.reclaimElement(dt, p)
		freed += n
		if err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", idx, err))
		}
	}
	l.log.Debug("reclaimed", zap.Int("blocks", freed), zap.Int("errors", len(errs)))
	if len(errs) > 0 {
		return fmt.Errorf("reclaim: %w", errors.Join(errs...))
	}
	return nil
}

func (l *Library) reclaimElement(dt *message.Datatype, p native.Ptr) (int, error) {
	word := native.Ptr(l.heap.WordSize())

	switch dt.Class {
	case message.ClassVarLen:
		if dt.IsVarLenString {
			q, err := l.heap.ReadWord(p)
			if err != nil {
				return 0, err
			}
			if native.Ptr(q) == native.Null {
				return 0, nil
			}
			return 1, l.heap.Free(native.Ptr(q))
		}

		count, err := l.heap.ReadWord(p)
		if err != nil {
			return 0, err
		}
		q, err := l.heap.ReadWord(p + word)
		if err != nil {
			return 0, err
		}
		if native.Ptr(q) == native.Null {
			return 0, nil
		}
		freed := 0
		if base := dt.VarLenType; containsVL(base) {
			for j := uint64(0); j < count; j++ {
				n, err := l.reclaimElement(base, native.Ptr(q)+native.Ptr(j*uint64(base.Size)))
				freed += n
				if err != nil {
					return freed, err
				}
			}
		}
		if err := l.heap.Free(native.Ptr(q)); err != nil {
			return freed, err
		}
		return freed + 1, nil

	case message.ClassArray:
		if !containsVL(dt.BaseType) {
			return 0, nil
		}
		freed := 0
		for i := 0; i < dt.ArrayLen(); i++ {
			n, err := l.reclaimElement(dt.BaseType, p+native.Ptr(i*int(dt.BaseType.Size)))
			freed += n
			if err != nil {
				return freed, err
			}
		}
		return freed, nil

	case message.ClassCompound:
		freed := 0
		for _, m := range dt.Members {
			if !containsVL(m.Type) {
				continue
			}
			n, err := l.reclaimElement(m.Type, p+native.Ptr(m.ByteOffset))
			freed += n
			if err != nil {
				return freed, fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
		return freed, nil
	}
	return 0, nil
}
