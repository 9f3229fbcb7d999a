// Package rtp implements the RFC 7798 H.265-over-RTP packetizer and
// depacketizer, plus the RTP header/packet wire types built on top of
// [github.com/pion/rtp]'s marshaling. Callers exchange [h265.EncodedH265Frame]
// values on one side and [Packet] values on the other.
package rtp
