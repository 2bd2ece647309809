package hash

import (
	"sort"
	"strconv"
	"sync"
)

const _defaultReplicas = 100

// ConsistentHash maps keys onto a stable ring of nodes. It is used to route
// requests for the same content to the same model server so that any
// server-side caching of decoded media stays effective.
type ConsistentHash struct {
	lock     sync.RWMutex
	ring     map[uint64]string
	keys     []uint64
	replicas int
}

// NewConsistentHash creates an empty ring using murmur3 with 100 virtual
// nodes per member.
func NewConsistentHash() *ConsistentHash {
	return &ConsistentHash{
		ring:     make(map[uint64]string),
		replicas: _defaultReplicas,
	}
}

// Add places node on the ring.
func (h *ConsistentHash) Add(node string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for i := 0; i < h.replicas; i++ {
		k := Hash([]byte(node + strconv.Itoa(i)))
		if _, ok := h.ring[k]; !ok {
			h.keys = append(h.keys, k)
		}
		h.ring[k] = node
	}
	sort.Slice(h.keys, func(i, j int) bool { return h.keys[i] < h.keys[j] })
}

// Get returns the node responsible for key, or false when the ring is empty.
func (h *ConsistentHash) Get(key string) (string, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if len(h.keys) == 0 {
		return "", false
	}
	k := Hash([]byte(key))
	idx := sort.Search(len(h.keys), func(i int) bool {
		return h.keys[i] >= k
	}) % len(h.keys)
	return h.ring[h.keys[idx]], true
}

// Remove takes node off the ring.
func (h *ConsistentHash) Remove(node string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for i := 0; i < h.replicas; i++ {
		k := Hash([]byte(node + strconv.Itoa(i)))
		if existing, ok := h.ring[k]; ok && existing == node {
			delete(h.ring, k)
			idx := sort.Search(len(h.keys), func(j int) bool { return h.keys[j] >= k })
			if idx < len(h.keys) && h.keys[idx] == k {
				h.keys = append(h.keys[:idx], h.keys[idx+1:]...)
			}
		}
	}
}
