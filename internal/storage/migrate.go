package storage

import (
	"context"
	"fmt"
	"maps"

	"github.com/fjod/go_cart/shopcart/internal/domain"
)

// MigrateFromPredecessor moves state from b's predecessor into b, once.
//
// Predecessor slots holding items replace the same prefix in b because the
// predecessor (usually the session) holds the more recent data. A predecessor
// slot with metadata but no items only merges its metadata into b's slot, so
// b's items survive. Slots only b has are kept, and an empty predecessor never
// overwrites anything. The predecessor is cleared afterwards so the next
// request does not migrate the same data again. It reports whether anything
// was migrated.
func MigrateFromPredecessor(ctx context.Context, b Backend) (bool, error) {
	s, ok := b.(Superseding)
	if !ok {
		return false, nil
	}
	from := s.Predecessor()
	if from == nil {
		return false, nil
	}

	src, err := from.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load predecessor: %w", err)
	}
	if src.IsEmpty() {
		return false, nil
	}

	dst, err := b.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load successor: %w", err)
	}
	for prefix, slot := range src {
		switch {
		case slot.IsEmpty():
		case len(slot.Items) == 0:
			dst[prefix] = mergeMetadata(dst[prefix], slot.Metadata)
		default:
			dst[prefix] = slot
		}
	}

	if err := b.Save(ctx, dst); err != nil {
		return false, fmt.Errorf("save successor: %w", err)
	}
	if err := from.Clear(ctx); err != nil {
		return true, fmt.Errorf("clear predecessor: %w", err)
	}
	return true, nil
}

func mergeMetadata(slot domain.Slot, metadata map[string]any) domain.Slot {
	merged := make(map[string]any, len(slot.Metadata)+len(metadata))
	maps.Copy(merged, slot.Metadata)
	maps.Copy(merged, metadata)
	slot.Metadata = merged
	return slot
}
