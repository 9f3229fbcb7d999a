package rtp

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/zsiec/framegraph/h265"
)

// MaxOpenTimestamps bounds how many in-progress frame timestamps the
// depacketizer holds before evicting the oldest by ascending numeric RTP
// timestamp.
const MaxOpenTimestamps = 10

// reassembledKeyframeTypes are the NAL types that mark a reassembled frame
// as a keyframe: IDR slices and prefix/suffix SEI messages.
var reassembledKeyframeTypes = map[byte]bool{
	h265.NALIDRWRadl:   true,
	h265.NALIDRNlp:     true,
	h265.NALSEIPrefix:  true,
	h265.NALSEISuffix:  true,
	h265.NALSEIPrefixR: true,
}

type openPacket struct {
	seq     uint16
	payload []byte
	marker  bool
}

// Depacketizer reassembles RFC 7798 RTP packets back into
// [h265.EncodedH265Frame] values, one per marker-terminated timestamp.
type Depacketizer struct {
	log *slog.Logger

	mu         sync.Mutex
	open       map[uint32][]openPacket
	order      []uint32 // insertion order of currently open timestamps
	lastSeq    uint16
	haveLast   bool
	format     *h265.ParameterSets
	seqGapWarn int
}

// NewDepacketizer builds an empty Depacketizer.
func NewDepacketizer() *Depacketizer {
	return &Depacketizer{
		log:  slog.With("component", "rtp-depacketizer"),
		open: make(map[uint32][]openPacket),
	}
}

// SeqGapWarnings reports how many sequence-number gaps have been observed,
// for tests and monitoring.
func (d *Depacketizer) SeqGapWarnings() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seqGapWarn
}

// Push records one RTP packet and, if it completes a frame (carries the
// marker bit), returns the reassembled frame.
func (d *Depacketizer) Push(pkt Packet) (h265.EncodedH265Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := pkt.Header.Timestamp

	if d.haveLast {
		expected := d.lastSeq + 1
		if pkt.Header.SequenceNumber != expected && d.seqExistsLocked(ts) {
			d.log.Warn("sequence gap while assembling frame",
				"timestamp", ts, "expected_seq", expected, "got_seq", pkt.Header.SequenceNumber)
			d.seqGapWarn++
		}
	}
	d.lastSeq = pkt.Header.SequenceNumber
	d.haveLast = true

	if pkt.Format != nil {
		d.format = pkt.Format
	}

	if _, ok := d.open[ts]; !ok {
		d.order = append(d.order, ts)
	}
	d.open[ts] = append(d.open[ts], openPacket{
		seq:     pkt.Header.SequenceNumber,
		payload: pkt.Payload,
		marker:  pkt.Header.Marker,
	})

	d.evictExcessLocked()

	if !pkt.Header.Marker {
		return h265.EncodedH265Frame{}, false
	}

	frame := d.assembleLocked(ts)
	d.dropLocked(ts)
	return frame, true
}

func (d *Depacketizer) seqExistsLocked(ts uint32) bool {
	_, ok := d.open[ts]
	return ok
}

// evictExcessLocked drops the oldest open timestamps, by ascending numeric
// RTP timestamp, once more than MaxOpenTimestamps are outstanding.
func (d *Depacketizer) evictExcessLocked() {
	if len(d.order) <= MaxOpenTimestamps {
		return
	}
	sorted := append([]uint32(nil), d.order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	toDrop := len(sorted) - MaxOpenTimestamps
	for i := 0; i < toDrop; i++ {
		ts := sorted[i]
		d.log.Warn("evicting stale open timestamp", "timestamp", ts)
		d.dropLocked(ts)
	}
}

func (d *Depacketizer) dropLocked(ts uint32) {
	delete(d.open, ts)
	for i, t := range d.order {
		if t == ts {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// assembleLocked reconstructs one frame from all packets recorded for ts.
func (d *Depacketizer) assembleLocked(ts uint32) h265.EncodedH265Frame {
	packets := append([]openPacket(nil), d.open[ts]...)
	sort.Slice(packets, func(i, j int) bool { return packets[i].seq < packets[j].seq })

	var nalus [][]byte
	var fuAccum []byte
	inFU := false

	for _, pkt := range packets {
		if len(pkt.payload) < 1 {
			continue
		}
		nalType := (pkt.payload[0] >> 1) & 0x3F

		switch {
		case nalType <= 48:
			nalus = append(nalus, pkt.payload)

		case nalType == NALTypeFU:
			if len(pkt.payload) < 3 {
				continue
			}
			phHi, phLo := pkt.payload[0], pkt.payload[1]
			start, end, fuType := parseFUHeader(pkt.payload[2])
			if start {
				hi := (fuType << 1) | (phHi & 0x01)
				lo := phLo
				fuAccum = append([]byte{hi, lo}, pkt.payload[3:]...)
				inFU = true
			} else if inFU {
				fuAccum = append(fuAccum, pkt.payload[3:]...)
			}
			if end && inFU {
				nalus = append(nalus, fuAccum)
				fuAccum = nil
				inFU = false
			}

		default:
			d.log.Debug("ignoring unsupported RTP payload NAL type", "nal_type", nalType)
		}
	}

	isKeyframe := false
	for _, n := range nalus {
		if len(n) == 0 {
			continue
		}
		nalType := (n[0] >> 1) & 0x3F
		if reassembledKeyframeTypes[nalType] {
			isKeyframe = true
			break
		}
	}

	return h265.EncodedH265Frame{
		Payload:    h265.EncodeAVCC(nalus),
		PTS:        h265.Rational{Value: int64(ts), Timescale: ClockRate},
		Duration:   h265.Rational{Value: 1, Timescale: 30},
		IsKeyframe: isKeyframe,
		Format:     d.format,
	}
}

// Finish assembles and returns every remaining open timestamp in ascending
// numeric order, then leaves the Depacketizer empty.
func (d *Depacketizer) Finish() []h265.EncodedH265Frame {
	d.mu.Lock()
	defer d.mu.Unlock()

	sorted := append([]uint32(nil), d.order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	frames := make([]h265.EncodedH265Frame, 0, len(sorted))
	for _, ts := range sorted {
		frames = append(frames, d.assembleLocked(ts))
		d.dropLocked(ts)
	}
	return frames
}
