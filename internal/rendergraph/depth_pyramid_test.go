package rendergraph

import "testing"

func TestNearestPow2RoundsUp(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		if got := nearestPow2(in); got != want {
			t.Errorf("nearestPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNumMipsCoversLargestDimension(t *testing.T) {
	if got := numMips(1920, 1080); got != log2u32(1920)+1 {
		t.Fatalf("numMips(1920,1080) = %d, want %d", got, log2u32(1920)+1)
	}
	if got := numMips(512, 512); got != 10 {
		t.Fatalf("numMips(512,512) = %d, want 10", got)
	}
}

func TestMipExtentHalvesAndClampsToMinimum(t *testing.T) {
	if got := mipExtent(1024); got != 512 {
		t.Fatalf("mipExtent(1024) = %d, want 512", got)
	}
	if got := mipExtent(20); got != minMipExtent {
		t.Fatalf("mipExtent(20) = %d, want clamp to %d", got, minMipExtent)
	}
	if got := mipExtent(16); got != minMipExtent {
		t.Fatalf("mipExtent(16) = %d, want clamp to %d", got, minMipExtent)
	}
}

func TestDispatchGroupsCeilDivides(t *testing.T) {
	gx, gy := dispatchGroups(17, 33)
	if gx != 2 {
		t.Fatalf("gx = %d, want 2 (ceil(17/16))", gx)
	}
	if gy != 3 {
		t.Fatalf("gy = %d, want 3 (ceil(33/16))", gy)
	}
}

func TestDispatchGroupsNeverZeroAtMinimumExtent(t *testing.T) {
	gx, gy := dispatchGroups(minMipExtent, minMipExtent)
	if gx != 1 || gy != 1 {
		t.Fatalf("dispatchGroups(min,min) = (%d,%d), want (1,1)", gx, gy)
	}
}
