// Package resource implements the CPU-core/device counting pool that
// backs direct-mode test execution. It is deliberately small: two integer
// counters plus an id-tracking allocation ledger, guarded by one mutex.
package resource

import (
	"fmt"
	"sync"
)

// NodeShape describes how many cores/devices a single compute node offers,
// used by EffectiveCores/EffectiveDevices for node-rounding.
type NodeShape struct {
	CoresPerNode   int
	DevicesPerNode int
}

// Handle is the concrete allocation returned by Obtain: the specific core
// and device ids granted, so the executor can export them into the child's
// environment (vvtest_util's resource section).
type Handle struct {
	id        int
	CoreIDs   []int
	DeviceIDs []int
}

// Pool tracks free cores and devices for direct-mode execution.
type Pool struct {
	mu sync.Mutex

	totalCores   int
	totalDevices int
	shape        NodeShape

	freeCoreIDs   []int
	freeDeviceIDs []int

	running     int
	nextHandle  int
	allocations map[int]Handle
}

// New builds a Pool with totalCores cores and totalDevices devices
// available, both addressed 0..n-1.
func New(totalCores, totalDevices int, shape NodeShape) *Pool {
	p := &Pool{
		totalCores:   totalCores,
		totalDevices: totalDevices,
		shape:        shape,
		allocations:  make(map[int]Handle),
	}
	for i := 0; i < totalCores; i++ {
		p.freeCoreIDs = append(p.freeCoreIDs, i)
	}
	for i := 0; i < totalDevices; i++ {
		p.freeDeviceIDs = append(p.freeDeviceIDs, i)
	}
	return p
}

// EffectiveCores returns max(np, nn*coresPerNode) when nn is specified
// (node-rounding), or np unchanged when nn is zero.
func (p *Pool) EffectiveCores(np, nn int) int {
	if nn <= 0 || p.shape.CoresPerNode <= 0 {
		return np
	}
	if rounded := nn * p.shape.CoresPerNode; rounded > np {
		return rounded
	}
	return np
}

// EffectiveDevices returns max(nd, nn*devicesPerNode) when nn is specified.
func (p *Pool) EffectiveDevices(nd, nn int) int {
	if nn <= 0 || p.shape.DevicesPerNode <= 0 {
		return nd
	}
	if rounded := nn * p.shape.DevicesPerNode; rounded > nd {
		return rounded
	}
	return nd
}

// Query reports whether np cores and nd devices are currently free, without
// allocating them.
func (p *Pool) Query(np, nd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freeCoreIDs) >= np && len(p.freeDeviceIDs) >= nd
}

// Obtain allocates np cores and nd devices, returning the concrete ids
// granted. allowOversubscribe permits exceeding the pool's totals when no
// test is currently running (the single-oversized-test rule, C4's job to
// decide when that applies); Obtain itself never reduces np/nd, it just
// relaxes the "enough free" check into "take everything available".
func (p *Pool) Obtain(np, nd int, allowOversubscribe bool) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	haveEnough := len(p.freeCoreIDs) >= np && len(p.freeDeviceIDs) >= nd
	if !haveEnough && !(allowOversubscribe && p.running == 0) {
		return Handle{}, fmt.Errorf("resource: insufficient capacity: need np=%d nd=%d, free cores=%d devices=%d", np, nd, len(p.freeCoreIDs), len(p.freeDeviceIDs))
	}

	coreCount := np
	if coreCount > len(p.freeCoreIDs) {
		coreCount = len(p.freeCoreIDs)
	}
	deviceCount := nd
	if deviceCount > len(p.freeDeviceIDs) {
		deviceCount = len(p.freeDeviceIDs)
	}

	cores := append([]int{}, p.freeCoreIDs[:coreCount]...)
	devices := append([]int{}, p.freeDeviceIDs[:deviceCount]...)
	p.freeCoreIDs = p.freeCoreIDs[coreCount:]
	p.freeDeviceIDs = p.freeDeviceIDs[deviceCount:]

	p.nextHandle++
	h := Handle{id: p.nextHandle, CoreIDs: cores, DeviceIDs: devices}
	p.allocations[h.id] = h
	p.running++
	return h, nil
}

// Release returns a handle's ids to the pool. It is idempotent: releasing an
// already-released (or unknown) handle is a no-op.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allocations[h.id]; !ok {
		return
	}
	delete(p.allocations, h.id)
	p.freeCoreIDs = append(p.freeCoreIDs, h.CoreIDs...)
	p.freeDeviceIDs = append(p.freeDeviceIDs, h.DeviceIDs...)
	p.running--
}

// Running reports how many allocations are currently outstanding.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Capacity returns the pool's total core/device counts.
func (p *Pool) Capacity() (cores, devices int) {
	return p.totalCores, p.totalDevices
}
