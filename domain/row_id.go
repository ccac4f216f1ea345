package domain

import (
	"sync"

	"github.com/google/uuid"
)

// RowIDGenerator hands out identities for new parameter rows.
type RowIDGenerator interface {
	NewRowID() RowID
}

// UUIDGenerator generates random (v4) row identities.
type UUIDGenerator struct{}

func (UUIDGenerator) NewRowID() RowID {
	return RowID(uuid.NewString())
}

// SequenceGenerator returns predetermined ids in order, for tests.
// It panics once the ids are exhausted.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []RowID
	idx int
}

func NewSequenceGenerator(ids ...RowID) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

func (g *SequenceGenerator) NewRowID() RowID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("SequenceGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
