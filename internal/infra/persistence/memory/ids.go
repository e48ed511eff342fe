package memory

import "proposalhub/pkg/domain"

// nextID hands out the kind's current counter and advances it. Counters live
// in the transaction's copy of the state, so ids consumed by a rolled-back
// transaction are handed out again.
func (tx *transaction) nextID(kind domain.EntityType) int64 {
	ptr := tx.state.NextID.Ptr(kind)
	if *ptr < 1 {
		*ptr = 1
	}
	id := *ptr
	*ptr++
	return id
}
