package h265

import "encoding/binary"

// HEVC NAL unit type constants, ITU-T H.265 Table 7-1.
const (
	NALBlaWLP     = 16
	NALIDRWRadl   = 19
	NALIDRNlp     = 20
	NALCraNut     = 21
	NALVPS        = 32
	NALSPS        = 33
	NALPPS        = 34
	NALAUD        = 35
	NALFillerData = 38
	NALSEIPrefix  = 39
	NALSEISuffix  = 40
	NALSEIPrefixR = 41
)

// NALType extracts the NAL unit type from the first byte of an HEVC 2-byte
// NAL header: forbidden(1) | type(6) | layerID_high(1).
func NALType(firstByte byte) byte {
	return (firstByte >> 1) & 0x3F
}

// IsKeyframe reports whether nalType is an HEVC random access point (BLA,
// IDR, or CRA).
func IsKeyframe(nalType byte) bool {
	return nalType >= NALBlaWLP && nalType <= NALCraNut
}

// IsVPS, IsSPS and IsPPS classify a NAL type.
func IsVPS(nalType byte) bool { return nalType == NALVPS }
func IsSPS(nalType byte) bool { return nalType == NALSPS }
func IsPPS(nalType byte) bool { return nalType == NALPPS }

// ExtractAVCC splits an AVCC-framed payload (each NAL preceded by a
// big-endian length field of lengthSize bytes) into individual NAL unit
// byte slices. A NAL whose declared length is 0 is skipped; a declared
// length that would exceed the remaining payload ends extraction.
func ExtractAVCC(payload []byte, lengthSize int) [][]byte {
	if lengthSize <= 0 || lengthSize > 4 {
		lengthSize = DefaultLengthSize
	}

	var nalus [][]byte
	offset := 0
	for offset+lengthSize <= len(payload) {
		nalLen := readLength(payload[offset:offset+lengthSize], lengthSize)
		offset += lengthSize
		if nalLen == 0 {
			continue
		}
		if offset+nalLen > len(payload) {
			break
		}
		nalus = append(nalus, payload[offset:offset+nalLen])
		offset += nalLen
	}
	return nalus
}

// EncodeAVCC reassembles NAL units into an AVCC-framed payload using a
// fixed 4-byte big-endian length prefix per NAL, matching the wire format
// EncodedH265Frame.Payload uses on the graph side of the depacketizer.
func EncodeAVCC(nalus [][]byte) []byte {
	out := make([]byte, 0, len(nalus)*4)
	lenBuf := make([]byte, 4)
	for _, n := range nalus {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(n)))
		out = append(out, lenBuf...)
		out = append(out, n...)
	}
	return out
}

func readLength(b []byte, size int) int {
	var v uint32
	for i := 0; i < size; i++ {
		v = (v << 8) | uint32(b[i])
	}
	return int(v)
}
