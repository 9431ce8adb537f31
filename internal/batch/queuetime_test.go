package batch

import "testing"

func TestApplyQueueTimeoutBumpFactor(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{30, 90},     // < 60: +60
		{300, 600},   // < 600: doubled
		{1200, 1200 + 10*60 + int(float64(1200-600)*0.3)},
		{3000, 3000 + 15*60}, // plateau
	}
	for _, c := range cases {
		if got := ApplyQueueTimeoutBumpFactor(c.in); got != c.want {
			t.Errorf("ApplyQueueTimeoutBumpFactor(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestComputeQueueTimeUsesNoTimeoutDefaultWhenSumZero(t *testing.T) {
	got := ComputeQueueTime([]int{0, 0}, 0)
	if got.Seconds() != noTimeoutQueueSeconds {
		t.Fatalf("expected no-timeout default, got %v", got)
	}
}

func TestComputeQueueTimeClampsToMaxTimeoutEvenOnDefault(t *testing.T) {
	got := ComputeQueueTime([]int{0}, 3600)
	if got.Seconds() != 3600 {
		t.Fatalf("expected maxTimeout clamp to win over 21h default, got %v", got)
	}
}

func TestComputeNumNodes(t *testing.T) {
	if got := ComputeNumNodes(17, 0, 8, 0); got != 3 {
		t.Fatalf("ComputeNumNodes(17,0,8,0) = %d, want 3", got)
	}
	if got := ComputeNumNodes(8, 5, 8, 2); got != 3 {
		t.Fatalf("ComputeNumNodes(8,5,8,2) = %d, want 3 (device-bound)", got)
	}
}
