package collab

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Partition is a bounded shard of rooms, capping per-shard fan-out.
type Partition struct {
	ID        string
	CreatedAt time.Time
	rooms     map[string]struct{}
}

// RoomCount returns the number of rooms currently in the partition.
func (p *Partition) RoomCount() int { return len(p.rooms) }

// PartitionBalancer assigns rooms to bounded-size partitions. Assignment is
// first-fit over partition creation order, not load-optimal. Empty partitions
// stay allocated; with a bounded total room count that waste is acceptable.
type PartitionBalancer struct {
	mu          sync.Mutex
	maxPerShard int
	partitions  []*Partition
	byRoom      map[string]*Partition
}

// NewPartitionBalancer creates a balancer capping each partition at
// maxRoomsPerPartition rooms.
func NewPartitionBalancer(maxRoomsPerPartition int) *PartitionBalancer {
	if maxRoomsPerPartition <= 0 {
		panic("maxRoomsPerPartition must be positive")
	}
	return &PartitionBalancer{
		maxPerShard: maxRoomsPerPartition,
		byRoom:      make(map[string]*Partition),
	}
}

// Assign places a room into the first partition with free capacity, creating
// a new partition when all are full. Returns the partition id.
func (b *PartitionBalancer) Assign(roomID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.byRoom[roomID]; ok {
		return p.ID
	}

	for _, p := range b.partitions {
		if len(p.rooms) < b.maxPerShard {
			p.rooms[roomID] = struct{}{}
			b.byRoom[roomID] = p
			return p.ID
		}
	}

	p := &Partition{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		rooms:     map[string]struct{}{roomID: {}},
	}
	b.partitions = append(b.partitions, p)
	b.byRoom[roomID] = p
	logrus.WithFields(logrus.Fields{
		"partition_id": p.ID,
		"partitions":   len(b.partitions),
	}).Debug("Created new room partition")
	return p.ID
}

// Release removes the room from its partition. Unknown rooms are a no-op.
func (b *PartitionBalancer) Release(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.byRoom[roomID]
	if !ok {
		return
	}
	delete(p.rooms, roomID)
	delete(b.byRoom, roomID)
}

// PartitionCount returns the number of allocated partitions, empty included.
func (b *PartitionBalancer) PartitionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.partitions)
}

// RoomCount returns the number of rooms in the given partition, or 0 when the
// partition does not exist.
func (b *PartitionBalancer) RoomCount(partitionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.partitions {
		if p.ID == partitionID {
			return len(p.rooms)
		}
	}
	return 0
}
