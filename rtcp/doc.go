// Package rtcp builds RFC 3550 §6.4.1 Sender Report packets and drives the
// dual-socket RTP/RTCP network sink: one UDP socket carrying RTP packets,
// a second carrying periodic Sender Reports derived from the first's
// running counters.
package rtcp
