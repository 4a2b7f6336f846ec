package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"mini-jsonrpc/registry"
)

const defaultReplicas = 100

// ConsistentHashBalancer maps a fixed affinity key onto a hash ring of the discovered
// instances, so a client keeps talking to the same server until that server leaves.
// When an instance leaves, only the keys that sat on it move.
//
// Each instance is placed on the ring as many virtual nodes ("{addr}#{i}") so a small set
// still spreads evenly.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	                ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int

	mu        sync.Mutex
	signature string         // sorted addresses the ring was built from
	ring      []uint32       // sorted virtual node hashes
	nodes     map[uint32]int // hash -> index into the instances slice of the last build
}

func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		key:      key,
		replicas: defaultReplicas,
	}
}

// Pick returns the instance owning the balancer's key. The ring is rebuilt only when the
// set of addresses changes.
func (b *ConsistentHashBalancer) Pick(instances []registry.Instance) (*registry.Instance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	return b.PickKey(b.key, instances)
}

// PickKey is Pick with an explicit key.
func (b *ConsistentHashBalancer) PickKey(key string, instances []registry.Instance) (*registry.Instance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rebuildLocked(instances)

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return &instances[b.nodes[b.ring[idx]]], nil
}

func (b *ConsistentHashBalancer) rebuildLocked(instances []registry.Instance) {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	// Index positions in nodes refer to the caller's slice order, which is part of the signature.
	signature := strings.Join(addrs, ",")
	if signature == b.signature && b.ring != nil {
		return
	}

	b.ring = make([]uint32, 0, len(instances)*b.replicas)
	b.nodes = make(map[uint32]int, len(instances)*b.replicas)
	for i, inst := range instances {
		for r := 0; r < b.replicas; r++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", inst.Addr, r)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = i
		}
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
	b.signature = signature
}

func (b *ConsistentHashBalancer) Name() string {
	return "consistent_hash"
}
