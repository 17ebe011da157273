package transfer

import "testing"

func TestClampBlockSize(t *testing.T) {
	cases := []struct {
		in, want uint64
	}{
		{0, MinBlockSize},
		{1, MinBlockSize},
		{MinBlockSize, MinBlockSize},
		{MinBlockSize + 1, 2 * MinBlockSize},
		{MaxBlockSize, MaxBlockSize},
		{MaxBlockSize + 1, MaxBlockSize},
		{1 << 40, MaxBlockSize},
	}
	for _, c := range cases {
		if got := clampBlockSize(c.in); got != c.want {
			t.Errorf("clampBlockSize(%d) = %d, want %d", c.in, got, c.want)
		}
		if got := clampBlockSize(c.in); got%MinBlockSize != 0 {
			t.Errorf("clampBlockSize(%d) = %d is not a %d multiple", c.in, got, MinBlockSize)
		}
	}
}

func TestAdjustBlockSizeBranches(t *testing.T) {
	current := initialBlockSize

	// u <= 0: doubles.
	doubled := adjustBlockSize(current, 0)
	if doubled != clampBlockSize(current*2) {
		t.Errorf("u<=0 branch: got %d, want %d", doubled, clampBlockSize(current*2))
	}

	// 0 < u <= target: scales up toward the 1s target.
	fast := adjustBlockSize(current, 500_000)
	if fast != clampBlockSize(current*2) {
		t.Errorf("fast branch: got %d, want %d", fast, clampBlockSize(current*2))
	}

	// u > target: exponential decay, strictly between current and the
	// naive linear scale-down.
	slow := adjustBlockSize(current, 4_000_000)
	linear := clampBlockSize(current / 4)
	if slow <= linear || slow >= current {
		// decay should land somewhere above the pure linear estimate
		// since it's 80% weighted toward the unchanged current value.
		t.Errorf("slow branch: got %d, want strictly between %d and %d", slow, linear, current)
	}
}

func TestAdjustBlockSizeAlwaysClamped(t *testing.T) {
	for _, u := range []int64{-1, 0, 1, 1000, 1_000_000, 10_000_000, 1 << 40} {
		got := adjustBlockSize(MaxBlockSize, u)
		if got < MinBlockSize || got > MaxBlockSize {
			t.Fatalf("adjustBlockSize(%d, %d) = %d out of clamp range", MaxBlockSize, u, got)
		}
		if got%MinBlockSize != 0 {
			t.Fatalf("adjustBlockSize(%d, %d) = %d not 64KiB aligned", MaxBlockSize, u, got)
		}
	}
}
