package batch

import "time"

// noTimeoutQueueSeconds is the queue time assigned to a batch whose members
// summed to zero (every member has "no timeout"): 21 hours, ported from
// BatchJobMaker.Tzero.
const noTimeoutQueueSeconds = 21 * 60 * 60

// ApplyQueueTimeoutBumpFactor pads a raw summed-timeout queue time with
// scheduler overhead that grows with qtime and plateaus at 15 minutes,
// ported bit-exact from apply_queue_timeout_bump_factor.
func ApplyQueueTimeoutBumpFactor(qtimeSeconds int) int {
	switch {
	case qtimeSeconds < 60:
		return qtimeSeconds + 60
	case qtimeSeconds < 10*60:
		return qtimeSeconds + qtimeSeconds
	case qtimeSeconds < 30*60:
		bump := 10*60 + int(float64(qtimeSeconds-10*60)*0.3)
		if bump > 15*60 {
			bump = 15 * 60
		}
		return qtimeSeconds + bump
	default:
		bump := 10*60 + int(float64(30*60-10*60)*0.3)
		if bump > 15*60 {
			bump = 15 * 60
		}
		return qtimeSeconds + bump
	}
}

// ComputeQueueTime sums memberTimeoutSeconds, applies the bump factor (or
// substitutes the 21h no-timeout default when the sum is zero), then clamps
// to maxTimeoutSeconds if positive. maxTimeout always wins when smaller,
// including against the 21h default, following computeQueueTime's
// unconditional final min().
func ComputeQueueTime(memberTimeoutSeconds []int, maxTimeoutSeconds int) time.Duration {
	sum := 0
	for _, t := range memberTimeoutSeconds {
		sum += t
	}

	var qtime int
	if sum == 0 {
		qtime = noTimeoutQueueSeconds
	} else {
		qtime = ApplyQueueTimeoutBumpFactor(sum)
	}

	if maxTimeoutSeconds > 0 && qtime > maxTimeoutSeconds {
		qtime = maxTimeoutSeconds
	}

	return time.Duration(qtime) * time.Second
}

// ComputeNumNodes returns max(ceil(np/coresPerNode), ceil(nd/devicesPerNode)),
// the node count a batch adapter must request for a job demanding np cores
// and nd devices.
func ComputeNumNodes(np, nd, coresPerNode, devicesPerNode int) int {
	nodes := ceilDiv(np, coresPerNode)
	if devNodes := ceilDiv(nd, devicesPerNode); devNodes > nodes {
		nodes = devNodes
	}
	if nodes < 1 {
		nodes = 1
	}
	return nodes
}

// SingleTestTimeoutCap computes the "-T" override a batch's re-invocation
// command must carry when the batch contains exactly one test, so that test
// gets a timeout strictly inside the queue's own time limit: 90% of qtime
// when qtime is under 10 minutes, or qtime minus two minutes otherwise.
func SingleTestTimeoutCap(qtime time.Duration) time.Duration {
	qs := qtime.Seconds()
	if qs < 600 {
		return time.Duration(qs*0.90) * time.Second
	}
	return qtime - 2*time.Minute
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
