package loadbalance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-jsonrpc/registry"
)

var testInstances = []registry.Instance{
	{Addr: ":8001", Weight: 10, Version: "1.0"},
	{Addr: ":8002", Weight: 5, Version: "1.0"},
	{Addr: ":8003", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	var got []string
	for i := 0; i < 4; i++ {
		inst, err := b.Pick(testInstances)
		require.NoError(t, err)
		got = append(got, inst.Addr)
	}
	assert.Equal(t, []string{":8001", ":8002", ":8003", ":8001"}, got)
}

func TestEmptyInstances(t *testing.T) {
	for _, b := range []Balancer{&RoundRobinBalancer{}, &WeightedRandomBalancer{}, NewConsistentHashBalancer("k")} {
		_, err := b.Pick(nil)
		assert.ErrorIs(t, err, ErrNoInstances, b.Name())
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		inst, err := b.Pick(testInstances)
		require.NoError(t, err)
		counts[inst.Addr]++
	}

	// 10:5:10, so :8001 should see about twice the traffic of :8002
	ratio := float64(counts[":8001"]) / float64(counts[":8002"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio :8001/:8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	instances := []registry.Instance{{Addr: "a"}, {Addr: "b"}}

	for i := 0; i < 100; i++ {
		inst, err := b.Pick(instances)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, inst.Addr)
	}
}

func TestConsistentHashStickyKey(t *testing.T) {
	b := NewConsistentHashBalancer("client-123")

	first, err := b.Pick(testInstances)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		inst, err := b.Pick(testInstances)
		require.NoError(t, err)
		assert.Equal(t, first.Addr, inst.Addr)
	}
}

func TestConsistentHashSpreadsKeys(t *testing.T) {
	b := NewConsistentHashBalancer("")

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		inst, err := b.PickKey(fmt.Sprintf("key-%d", i), testInstances)
		require.NoError(t, err)
		seen[inst.Addr] = true
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}

func TestConsistentHashOnlyMovesKeysOfRemovedInstance(t *testing.T) {
	b := NewConsistentHashBalancer("")
	reduced := []registry.Instance{testInstances[0], testInstances[2]}

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		before, err := b.PickKey(key, testInstances)
		require.NoError(t, err)
		after, err := b.PickKey(key, reduced)
		require.NoError(t, err)
		if before.Addr != ":8002" {
			assert.Equal(t, before.Addr, after.Addr, key)
		}
	}
}

func TestNew(t *testing.T) {
	for name, want := range map[string]string{
		"":                "round_robin",
		"round_robin":     "round_robin",
		"weighted_random": "weighted_random",
		"consistent_hash": "consistent_hash",
	} {
		b, err := New(name, "k")
		require.NoError(t, err)
		assert.Equal(t, want, b.Name())
	}

	_, err := New("random", "")
	assert.Error(t, err)
}
