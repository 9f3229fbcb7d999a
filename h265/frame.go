package h265

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Rational is a value/timescale pair used for PTS and duration throughout
// the pipeline, matching the encoder's own rational time representation
// instead of collapsing to a floating-point seconds value.
type Rational struct {
	Value     int64
	Timescale int64
}

// Seconds returns the rational as floating-point seconds. Timescale of zero
// is treated as 1 to avoid a division by zero on a zero-value Rational.
func (r Rational) Seconds() float64 {
	ts := r.Timescale
	if ts == 0 {
		ts = 1
	}
	return float64(r.Value) / float64(ts)
}

// EncodedH265Frame is one access unit in AVCC form (each NAL preceded by a
// 4-byte big-endian length), the buffer type carried between encoder,
// packetizer and any recording sink in the pipeline.
type EncodedH265Frame struct {
	Payload    []byte
	PTS        Rational
	Duration   Rational
	IsKeyframe bool
	Format     *ParameterSets
}

var errFrameTruncated = errors.New("h265: encoded frame wire data truncated")

// Marshal serializes a frame for transport across a process boundary or
// into a recording. Frames without a parameter-set update marshal with no
// format section; the receiving side is expected to rely on a previously
// latched format from an earlier keyframe.
func (f EncodedH265Frame) Marshal() []byte {
	var buf bytes.Buffer

	var flags byte
	if f.IsKeyframe {
		flags |= 0x01
	}
	if f.Format != nil {
		flags |= 0x02
	}
	buf.WriteByte(flags)

	writeInt64(&buf, f.PTS.Value)
	writeInt64(&buf, f.PTS.Timescale)
	writeInt64(&buf, f.Duration.Value)
	writeInt64(&buf, f.Duration.Timescale)

	if f.Format != nil {
		writeByteString(&buf, f.Format.VPS)
		writeByteString(&buf, f.Format.SPS)
		writeByteString(&buf, f.Format.PPS)
	}

	writeUint32ByteString(&buf, f.Payload)

	return buf.Bytes()
}

// Unmarshal decodes a frame previously produced by Marshal.
func Unmarshal(data []byte) (EncodedH265Frame, error) {
	r := bytes.NewReader(data)

	flagsByte, err := r.ReadByte()
	if err != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}

	f := EncodedH265Frame{IsKeyframe: flagsByte&0x01 != 0}
	hasFormat := flagsByte&0x02 != 0

	var err2 error
	if f.PTS.Value, err2 = readInt64(r); err2 != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}
	if f.PTS.Timescale, err2 = readInt64(r); err2 != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}
	if f.Duration.Value, err2 = readInt64(r); err2 != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}
	if f.Duration.Timescale, err2 = readInt64(r); err2 != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}

	if hasFormat {
		var sets ParameterSets
		if sets.VPS, err2 = readByteString(r); err2 != nil {
			return EncodedH265Frame{}, errFrameTruncated
		}
		if sets.SPS, err2 = readByteString(r); err2 != nil {
			return EncodedH265Frame{}, errFrameTruncated
		}
		if sets.PPS, err2 = readByteString(r); err2 != nil {
			return EncodedH265Frame{}, errFrameTruncated
		}
		f.Format = &sets
	}

	if f.Payload, err2 = readUint32ByteString(r); err2 != nil {
		return EncodedH265Frame{}, errFrameTruncated
	}

	return f, nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

// writeByteString writes a length-prefixed (u16 be) byte slice, sufficient
// for VPS/SPS/PPS NALs which never approach 64KiB.
func writeByteString(buf *bytes.Buffer, data []byte) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func readByteString(r *bytes.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeUint32ByteString(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func readUint32ByteString(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
