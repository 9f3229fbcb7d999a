package rtp

import "testing"

func TestHeaderMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	original := Packet{
		Header: Header{
			Version:        2,
			Marker:         true,
			PayloadType:    98,
			SequenceNumber: 4242,
			Timestamp:      90000,
			SSRC:           0xDEADBEEF,
		},
		Payload: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
	}

	data, err := original.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	h, want := got.Header, original.Header
	if h.Version != want.Version || h.Marker != want.Marker || h.PayloadType != want.PayloadType ||
		h.SequenceNumber != want.SequenceNumber || h.Timestamp != want.Timestamp || h.SSRC != want.SSRC {
		t.Errorf("header mismatch: got %+v, want %+v", h, want)
	}
	if string(got.Payload) != string(original.Payload) {
		t.Errorf("payload mismatch: got %v, want %v", got.Payload, original.Payload)
	}
}

func TestUnmarshalRejectsTruncatedPacket(t *testing.T) {
	t.Parallel()

	if _, err := Unmarshal([]byte{0x80}); err == nil {
		t.Error("expected error for truncated rtp packet")
	}
}
