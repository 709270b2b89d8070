package pool

import (
	"fmt"
	"sync"
)

// AllocationUnit is the rounding granularity of DevicePool. Every
// reservation is a multiple of this many bytes.
const AllocationUnit = 512

// DevicePool is a reference Allocator for one simulated device.
//
// Memory comes from a fixed-capacity anonymous mapping. Reservation is a
// bump pointer over that mapping; released blocks are cached on
// size-keyed LIFO free lists and reused for later acquires of the same
// rounded size. Blocks evicted from the cache by FreeAllBlocks go back to
// a device-side list and are reused before the bump pointer advances.
// There is no coalescing: reuse is exact-size, append-only otherwise.
//
// All methods are safe for concurrent use.
type DevicePool struct {
	device   int
	capacity int64

	mu         sync.Mutex
	arena      *arena
	off        int64             // bump pointer into the arena
	held       int64             // bytes held from the device (in use + cached)
	cacheBytes int64             // bytes sitting on the cache free lists
	cache      map[int64][]Block // rounded size -> cached blocks, LIFO
	reclaimed  map[int64][]Block // rounded size -> device-side free blocks
}

// NewDevicePool creates a pool for deviceID backed by capacity bytes of
// mapped memory. The capacity is rounded up to the allocation unit.
func NewDevicePool(deviceID int, capacity int64) (*DevicePool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	capacity = roundUp(capacity)
	a, err := newArena(capacity)
	if err != nil {
		return nil, fmt.Errorf("pool: map device arena: %w", err)
	}
	return &DevicePool{
		device:    deviceID,
		capacity:  capacity,
		arena:     a,
		cache:     make(map[int64][]Block),
		reclaimed: make(map[int64][]Block),
	}, nil
}

func roundUp(size int64) int64 {
	return (size + AllocationUnit - 1) &^ (AllocationUnit - 1)
}

// RoundSize rounds a requested byte size up to the allocation unit.
// Non-positive sizes round to 0.
func (p *DevicePool) RoundSize(requested int64) int64 {
	if requested <= 0 {
		return 0
	}
	return roundUp(requested)
}

// FindCachedBlock pops a cached block of exactly the rounded size, most
// recently released first.
func (p *DevicePool) FindCachedBlock(rounded int64) (Block, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.cache[rounded]
	if len(s) == 0 {
		return Block{}, false
	}
	blk := s[len(s)-1]
	p.cache[rounded] = s[:len(s)-1]
	p.cacheBytes -= rounded
	return blk, true
}

// AllocateFromDevice reserves rounded bytes of device memory, reusing a
// reclaimed block of the same size when one exists. It fails with an
// error wrapping ErrOutOfMemory when the device is exhausted.
func (p *DevicePool) AllocateFromDevice(deviceID int, rounded int64) (uintptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rounded <= 0 || rounded != roundUp(rounded) {
		return 0, fmt.Errorf("%w: unrounded size %d", ErrInvalidSize, rounded)
	}

	if s := p.reclaimed[rounded]; len(s) > 0 {
		blk := s[len(s)-1]
		p.reclaimed[rounded] = s[:len(s)-1]
		p.held += rounded
		return blk.Ptr, nil
	}

	if p.held+rounded > p.capacity || p.off+rounded > p.capacity {
		return 0, fmt.Errorf("%w: device %d: need %d bytes, %d free",
			ErrOutOfMemory, deviceID, rounded, p.capacity-p.held)
	}
	ptr := p.arena.ptr(p.off)
	p.off += rounded
	p.held += rounded
	return ptr, nil
}

// ReleaseBlockToPool pushes blk onto the cache free list for its size.
func (p *DevicePool) ReleaseBlockToPool(blk Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[blk.Size] = append(p.cache[blk.Size], blk)
	p.cacheBytes += blk.Size
}

// FreeAllBlocks drops every cached block, returning its memory to the
// device. Blocks currently in use are unaffected.
func (p *DevicePool) FreeAllBlocks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for size, blocks := range p.cache {
		p.reclaimed[size] = append(p.reclaimed[size], blocks...)
		p.held -= size * int64(len(blocks))
		delete(p.cache, size)
	}
	p.cacheBytes = 0
}

// UsedBytes returns the bytes currently acquired and not yet released.
func (p *DevicePool) UsedBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held - p.cacheBytes
}

// FreeBytes returns the bytes sitting in the pool cache.
func (p *DevicePool) FreeBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cacheBytes
}

// TotalBytes returns the bytes held from the device, in use plus cached.
func (p *DevicePool) TotalBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// Capacity returns the device capacity in bytes.
func (p *DevicePool) Capacity() int64 { return p.capacity }

// DeviceID returns the device this pool serves.
func (p *DevicePool) DeviceID() int { return p.device }

// Slice returns the backing bytes of a block acquired from this pool.
// The slice stays valid until Close.
func (p *DevicePool) Slice(blk Block) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arena.slice(blk.Ptr, blk.Size)
}

// Close unmaps the device arena. Pointers handed out by the pool are
// invalid afterwards.
func (p *DevicePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.arena == nil {
		return nil
	}
	err := p.arena.release()
	p.arena = nil
	return err
}
