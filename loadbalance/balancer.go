// Package loadbalance picks which registered instance serves the next call.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity instances
//   - WeightedRandom:  instances with different capacity, by Instance.Weight
//   - ConsistentHash:  one client sticks to one instance while the set is stable
package loadbalance

import (
	"errors"
	"fmt"

	"mini-jsonrpc/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer selects one instance from the currently discovered list.
// Pick is called once per call and must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.Instance) (*registry.Instance, error)
	Name() string
}

// New builds a balancer by name: "round_robin", "weighted_random" or "consistent_hash".
// key is the affinity key for consistent hashing and is ignored otherwise.
func New(name, key string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	case "consistent_hash":
		return NewConsistentHashBalancer(key), nil
	default:
		return nil, fmt.Errorf("unknown balancer %q", name)
	}
}
