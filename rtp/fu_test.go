package rtp

import "testing"

func TestFUHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start, end bool
		nalType    byte
	}{
		{true, false, 19},
		{false, false, 19},
		{false, true, 19},
		{true, true, 1},
	}
	for _, c := range cases {
		b := buildFUHeader(c.start, c.end, c.nalType)
		start, end, nalType := parseFUHeader(b)
		if start != c.start || end != c.end || nalType != c.nalType {
			t.Errorf("round trip mismatch for %+v: got start=%v end=%v type=%d", c, start, end, nalType)
		}
	}
}

func TestBuildPayloadHdrPreservesLayerBit(t *testing.T) {
	t.Parallel()

	hi, lo := buildPayloadHdr(0x27, 0x01) // original type=19, layer bit=1
	if hi&0x01 != 1 {
		t.Errorf("layer bit not preserved: hi = %08b", hi)
	}
	gotType := (hi >> 1) & 0x3F
	if gotType != NALTypeFU {
		t.Errorf("payload hdr type = %d, want %d", gotType, NALTypeFU)
	}
	if lo != 0x01 {
		t.Errorf("lo byte changed: got %#x, want 0x01", lo)
	}
}
