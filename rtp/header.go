package rtp

import (
	pionrtp "github.com/pion/rtp"

	"github.com/zsiec/framegraph/h265"
)

// Header is the RTP fixed header (RFC 3550 §5.1). It mirrors the fixed-header
// fields of [pionrtp.Header]; header extensions are not carried. The
// conversion in Marshal/Unmarshal is
// the only place that couples this package to pion/rtp's exact struct
// shape, so an upstream field rename only needs a fix here.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32
}

// Packet pairs a Header with its RTP payload. Format is set on packets
// carrying (or immediately following) a parameter-set update, letting a
// depacketizer latch VPS/SPS/PPS without a side channel.
type Packet struct {
	Header  Header
	Payload []byte
	Format  *h265.ParameterSets
}

// Marshal serializes p's header and payload into a single RTP datagram.
func (p Packet) Marshal() ([]byte, error) {
	pk := pionrtp.Packet{
		Header: pionrtp.Header{
			Version:        p.Header.Version,
			Padding:        p.Header.Padding,
			Extension:      p.Header.Extension,
			Marker:         p.Header.Marker,
			PayloadType:    p.Header.PayloadType,
			SequenceNumber: p.Header.SequenceNumber,
			Timestamp:      p.Header.Timestamp,
			SSRC:           p.Header.SSRC,
			CSRC:           p.Header.CSRC,
		},
		Payload: p.Payload,
	}
	return pk.Marshal()
}

// Unmarshal decodes one RTP datagram into a Packet. Format is always nil,
// since the wire form carries no parameter-set side channel; a Depacketizer
// latches parameter sets only from a non-nil Packet.Format.
func Unmarshal(data []byte) (Packet, error) {
	var pk pionrtp.Packet
	if err := pk.Unmarshal(data); err != nil {
		return Packet{}, err
	}
	return Packet{
		Header: Header{
			Version:        pk.Header.Version,
			Padding:        pk.Header.Padding,
			Extension:      pk.Header.Extension,
			Marker:         pk.Header.Marker,
			PayloadType:    pk.Header.PayloadType,
			SequenceNumber: pk.Header.SequenceNumber,
			Timestamp:      pk.Header.Timestamp,
			SSRC:           pk.Header.SSRC,
			CSRC:           pk.Header.CSRC,
		},
		Payload: pk.Payload,
	}, nil
}
