package transport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/registry"
)

type countingFactory struct {
	mu    sync.Mutex
	built map[string]int
	fail  map[string]bool
}

func (f *countingFactory) build(_ context.Context, inst registry.Instance) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built[inst.Addr]++
	addr := inst.Addr
	return Func(func(ctx context.Context, request []byte) ([]byte, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail[addr] {
			return nil, errors.New("connection reset")
		}
		return []byte(addr), nil
	}), nil
}

func TestDiscoveryTransportRoundRobin(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	require.NoError(t, reg.Register(ctx, "Echo", registry.Instance{Addr: "a:1"}, 10))
	require.NoError(t, reg.Register(ctx, "Echo", registry.Instance{Addr: "b:2"}, 10))

	f := &countingFactory{built: map[string]int{}, fail: map[string]bool{}}
	tr := NewDiscoveryTransport("Echo", reg, &loadbalance.RoundRobinBalancer{}, f.build, nil)
	defer tr.Close()

	var got []string
	for i := 0; i < 4; i++ {
		resp, err := tr.Send(ctx, []byte("x"))
		require.NoError(t, err)
		got = append(got, string(resp))
	}
	assert.Equal(t, []string{"a:1", "b:2", "a:1", "b:2"}, got)
	assert.Equal(t, map[string]int{"a:1": 1, "b:2": 1}, f.built)
}

func TestDiscoveryTransportNoInstances(t *testing.T) {
	f := &countingFactory{built: map[string]int{}, fail: map[string]bool{}}
	tr := NewDiscoveryTransport("Echo", registry.NewMemoryRegistry(), &loadbalance.RoundRobinBalancer{}, f.build, nil)

	_, err := tr.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, loadbalance.ErrNoInstances)
}

func TestDiscoveryTransportRebuildsAfterFailure(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	require.NoError(t, reg.Register(ctx, "Echo", registry.Instance{Addr: "a:1"}, 10))

	f := &countingFactory{built: map[string]int{}, fail: map[string]bool{"a:1": true}}
	tr := NewDiscoveryTransport("Echo", reg, &loadbalance.RoundRobinBalancer{}, f.build, nil)

	_, err := tr.Send(ctx, []byte("x"))
	require.Error(t, err)

	f.mu.Lock()
	f.fail["a:1"] = false
	f.mu.Unlock()

	resp, err := tr.Send(ctx, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "a:1", string(resp))
	assert.Equal(t, 2, f.built["a:1"])
}

func TestDialUnknownScheme(t *testing.T) {
	_, err := Dial(context.Background(), registry.Instance{Addr: "a:1", Scheme: "carrier-pigeon"})
	assert.Error(t, err)
}
