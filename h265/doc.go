// Package h265 parses and builds the HEVC bitstream structures the graph
// runtime carries as buffers: NAL type classification, AVCC length-prefixed
// NAL splitting and joining, ISO/IEC 14496-15 parameter-set record (hvcC)
// parsing and building, and the encoded-frame wire format. It has no dependency on package graph or rtp; it is a
// plain codec-parsing library.
package h265
