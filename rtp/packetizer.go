package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/zsiec/framegraph/h265"
)

const (
	// DefaultPayloadType is the dynamic RTP payload type used for HEVC.
	DefaultPayloadType = 98
	// ClockRate is the RTP clock rate for video per RFC 7798.
	ClockRate = 90000
	// DefaultMaxPayload is the packetizer's default MTU payload cap.
	DefaultMaxPayload = 1400
	// fuOverhead is the bytes consumed by PayloadHdr(2) + FU header(1) in
	// each fragment packet.
	fuOverhead = 3
)

var errNoNALUnits = errors.New("rtp: frame payload contains no extractable NAL units")

// Packetizer turns AVCC-framed encoded frames into RFC 7798 RTP packets.
// One Packetizer owns exactly one SSRC and one sequence-number counter, so
// it must not be shared between two independent RTP streams.
type Packetizer struct {
	log *slog.Logger

	SSRC        uint32
	PayloadType uint8
	MaxPayload  int
	LengthSize  int

	seq uint16

	packetCount atomic.Uint32
	octetCount  atomic.Uint32
}

// NewPacketizer builds a Packetizer with a random initial sequence number
// (RFC 3550 §5.1) and the given SSRC.
func NewPacketizer(ssrc uint32) *Packetizer {
	return &Packetizer{
		log:         slog.With("component", "rtp-packetizer", "ssrc", ssrc),
		SSRC:        ssrc,
		PayloadType: DefaultPayloadType,
		MaxPayload:  DefaultMaxPayload,
		LengthSize:  h265.DefaultLengthSize,
		seq:         randomSeq(),
	}
}

func randomSeq() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}

// Stats reports the packetizer's cumulative counters for the RTCP layer.
func (p *Packetizer) Stats() (packetCount, octetCount uint32) {
	return p.packetCount.Load(), p.octetCount.Load()
}

// Packetize converts one encoded frame into the RTP packets that carry it,
// The final packet of the frame carries the marker bit.
func (p *Packetizer) Packetize(frame h265.EncodedH265Frame) ([]Packet, error) {
	// A frame carrying its own hvcC-derived Format overrides the
	// packetizer's configured LengthSize, since lengthSizeMinusOne is a
	// per-stream property signaled in-band by the parameter sets, not a
	// packetizer-wide setting.
	lengthSize := p.LengthSize
	if frame.Format != nil && frame.Format.LengthSize > 0 {
		lengthSize = frame.Format.LengthSize
	}
	if lengthSize <= 0 {
		lengthSize = h265.DefaultLengthSize
	}

	nalus := h265.ExtractAVCC(frame.Payload, lengthSize)
	if len(nalus) == 0 {
		return nil, errNoNALUnits
	}

	maxPayload := p.MaxPayload
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}

	rtpTS := uint32(int64(math.Round(frame.PTS.Seconds() * ClockRate))) // wraps modulo 2^32 via the int64-to-uint32 conversion

	totalPackets := 0
	for _, nalu := range nalus {
		if len(nalu) <= maxPayload {
			totalPackets++
			continue
		}
		fragBody := len(nalu) - 2
		fragSize := maxPayload - fuOverhead
		totalPackets += ceilDiv(fragBody, fragSize)
	}

	var packets []Packet
	ordinal := 0

	for _, nalu := range nalus {
		if len(nalu) <= maxPayload {
			ordinal++
			packets = append(packets, p.newPacket(rtpTS, nalu, ordinal == totalPackets, frame))
			continue
		}

		hi, lo := nalu[0], nalu[1]
		body := nalu[2:]
		fragSize := maxPayload - fuOverhead
		phHi, phLo := buildPayloadHdr(hi, lo)
		nalType := (hi >> 1) & 0x3F

		for off := 0; off < len(body); off += fragSize {
			end := off + fragSize
			if end > len(body) {
				end = len(body)
			}
			isFirst := off == 0
			isLast := end == len(body)
			fuHdr := buildFUHeader(isFirst, isLast, nalType)

			payload := make([]byte, 0, 3+(end-off))
			payload = append(payload, phHi, phLo, fuHdr)
			payload = append(payload, body[off:end]...)

			ordinal++
			packets = append(packets, p.newPacket(rtpTS, payload, ordinal == totalPackets, frame))
		}
	}

	return packets, nil
}

func (p *Packetizer) newPacket(ts uint32, payload []byte, marker bool, frame h265.EncodedH265Frame) Packet {
	pkt := Packet{
		Header: Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    p.PayloadType,
			SequenceNumber: p.seq,
			Timestamp:      ts,
			SSRC:           p.SSRC,
		},
		Payload: payload,
	}
	if frame.Format != nil {
		pkt.Format = frame.Format
	}

	p.seq++
	p.packetCount.Add(1)
	p.octetCount.Add(uint32(len(payload)))

	return pkt
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
