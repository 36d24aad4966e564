package collab_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"collaborative-editor/internal/collab"
)

func TestPartitionBalancer_FirstFit(t *testing.T) {
	b := collab.NewPartitionBalancer(3)

	p1 := b.Assign("r1")
	assert.Equal(t, p1, b.Assign("r2"))
	assert.Equal(t, p1, b.Assign("r3"))
	assert.Equal(t, 1, b.PartitionCount())

	// The fourth room overflows into a fresh partition.
	p2 := b.Assign("r4")
	assert.NotEqual(t, p1, p2)
	assert.Equal(t, 2, b.PartitionCount())
	assert.Equal(t, 3, b.RoomCount(p1))
	assert.Equal(t, 1, b.RoomCount(p2))
}

func TestPartitionBalancer_AssignIsIdempotent(t *testing.T) {
	b := collab.NewPartitionBalancer(2)

	p := b.Assign("r1")
	assert.Equal(t, p, b.Assign("r1"), "re-assigning the same room keeps its partition")
	assert.Equal(t, 1, b.RoomCount(p))
}

func TestPartitionBalancer_ReleaseFreesCapacity(t *testing.T) {
	b := collab.NewPartitionBalancer(2)

	p1 := b.Assign("r1")
	b.Assign("r2")
	b.Release("r1")

	// The freed slot is reused before a new partition is created.
	assert.Equal(t, p1, b.Assign("r3"))
	assert.Equal(t, 1, b.PartitionCount())
}

func TestPartitionBalancer_ReleaseUnknownRoomIsNoop(t *testing.T) {
	b := collab.NewPartitionBalancer(2)
	b.Release("never-assigned")
	assert.Equal(t, 0, b.PartitionCount())
}

func TestPartitionBalancer_GrowsWithLoad(t *testing.T) {
	b := collab.NewPartitionBalancer(10)
	for i := 0; i < 95; i++ {
		b.Assign(fmt.Sprintf("room-%d", i))
	}
	assert.Equal(t, 10, b.PartitionCount())
}
