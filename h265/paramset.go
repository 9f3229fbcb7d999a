package h265

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ParameterSets holds the raw VPS/SPS/PPS NAL payloads extracted from an
// hvcC configuration record, plus the record's AVCC length-field size, so a
// received hvcC governs how every subsequent frame's payload is parsed.
// Each NAL payload is raw, without start code or length prefix.
type ParameterSets struct {
	VPS        []byte
	SPS        []byte
	PPS        []byte
	LengthSize int
}

var (
	// ErrHVCCTooShort is returned when the hvcC record is shorter than the
	// fixed 23-byte header ISO/IEC 14496-15 §8.3.3.1.2 requires.
	ErrHVCCTooShort = errors.New("h265: hvcC record too short")
	// ErrHVCCVersion is returned when configurationVersion is not 1.
	ErrHVCCVersion = errors.New("h265: unsupported hvcC configuration version")
	// ErrHVCCTruncated is returned when an array or NAL length runs past
	// the end of the record.
	ErrHVCCTruncated = errors.New("h265: hvcC record truncated")
)

// DefaultLengthSize is used when a length size can't be recovered from an
// hvcC record (e.g. a frame arrives before any parameter-set update).
const DefaultLengthSize = 4

// ParseHVCC parses an ISO/IEC 14496-15 §8.3.3.1.2 HEVCDecoderConfigurationRecord,
// returning the last VPS, SPS, and PPS NAL unit encountered along with the
// record's lengthSizeMinusOne field (byte 21, bits 0-1) as an AVCC length
// size in [1,4]. Callers parsing AVCC-framed payloads governed by this
// record should use the returned LengthSize instead of DefaultLengthSize.
func ParseHVCC(hvcc []byte) (ParameterSets, error) {
	if len(hvcc) < 23 {
		return ParameterSets{}, ErrHVCCTooShort
	}
	if hvcc[0] != 1 {
		return ParameterSets{}, ErrHVCCVersion
	}

	numOfArrays := int(hvcc[22])
	sets := ParameterSets{LengthSize: int(hvcc[21]&0x03) + 1}
	offset := 23

	for a := 0; a < numOfArrays; a++ {
		if offset+3 > len(hvcc) {
			return ParameterSets{}, ErrHVCCTruncated
		}
		nalType := hvcc[offset] & 0x3F
		numNalus := int(binary.BigEndian.Uint16(hvcc[offset+1 : offset+3]))
		offset += 3

		for n := 0; n < numNalus; n++ {
			if offset+2 > len(hvcc) {
				return ParameterSets{}, ErrHVCCTruncated
			}
			nalLen := int(binary.BigEndian.Uint16(hvcc[offset : offset+2]))
			offset += 2
			if offset+nalLen > len(hvcc) {
				return ParameterSets{}, ErrHVCCTruncated
			}
			payload := hvcc[offset : offset+nalLen]
			offset += nalLen

			switch nalType {
			case NALVPS:
				sets.VPS = payload
			case NALSPS:
				sets.SPS = payload
			case NALPPS:
				sets.PPS = payload
			}
		}
	}

	return sets, nil
}

// BuildHVCC constructs a minimal HEVCDecoderConfigurationRecord carrying
// exactly one VPS, SPS, and PPS array, a well-formed record that
// round-trips against ParseHVCC. This package
// does not parse an HEVC SPS bitstream, so every fixed profile/tier/level
// field is zeroed; only the array section and lengthSizeMinusOne, which
// ParseHVCC and its callers actually consume, are meaningful.
func BuildHVCC(vps, sps, pps []byte) ([]byte, error) {
	if len(vps) == 0 || len(sps) == 0 || len(pps) == 0 {
		return nil, fmt.Errorf("h265: BuildHVCC requires non-empty vps, sps and pps")
	}

	buf := make([]byte, 23)
	buf[0] = 1     // configurationVersion
	buf[1] = 0x00  // general_tier_flag | general_profile_idc, zeroed
	buf[13] = 0xF0 // reserved(4) | min_spatial_segmentation_idc high nibble
	buf[14] = 0x00
	buf[15] = 0xFC // reserved(6) | parallelismType(2), unset
	buf[16] = 0xFC
	buf[17] = 0xF8
	buf[18] = 0xF8
	buf[19] = 0x00
	buf[20] = 0x00
	buf[21] = 0xF0 | byte(DefaultLengthSize-1) // constantFrameRate|numTemporalLayers|nested|lengthSizeMinusOne
	buf[22] = 3                                // numOfArrays: VPS, SPS, PPS

	buf = appendArray(buf, NALVPS, vps)
	buf = appendArray(buf, NALSPS, sps)
	buf = appendArray(buf, NALPPS, pps)

	return buf, nil
}

func appendArray(buf []byte, nalType byte, payload []byte) []byte {
	buf = append(buf, 0x20|nalType) // array_completeness=0 | reserved | NAL_unit_type
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, 1) // numNalus
	buf = append(buf, lenBuf...)
	sizeBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(sizeBuf, uint16(len(payload)))
	buf = append(buf, sizeBuf...)
	return append(buf, payload...)
}
