package rtcp

import "encoding/binary"

// ntpEpochOffset is the number of seconds between the NTP epoch (1900-01-01)
// and the Unix epoch (1970-01-01), used to convert a Unix timestamp into
// the NTP seconds field of a Sender Report.
const ntpEpochOffset = 2208988800

// ptSenderReport is the RTCP packet type value identifying a Sender Report.
const ptSenderReport = 200

// senderReportLen is the fixed length in bytes of a Sender Report with no
// reception report blocks and no profile-specific extensions.
const senderReportLen = 28

/*
BuildSenderReport encodes an RFC 3550 §6.4.1 Sender Report with RC=0 and no
report blocks:

	byte 0:      0x80             (V=2, P=0, RC=0)
	byte 1:      200              (PT = SR)
	bytes 2..3:  length = 6       (u16 be, words minus one)
	bytes 4..7:  SSRC             (u32 be)
	bytes 8..15: NTP timestamp    (seconds since 1900, u32 be; fraction=0)
	bytes 16..19: RTP timestamp   (u32 be)
	bytes 20..23: sender's packet count (u32 be)
	bytes 24..27: sender's octet count  (u32 be)
*/
func BuildSenderReport(ssrc uint32, unixSeconds int64, rtpTimestamp, packetCount, octetCount uint32) []byte {
	buf := make([]byte, senderReportLen)

	buf[0] = 0x80
	buf[1] = ptSenderReport
	binary.BigEndian.PutUint16(buf[2:4], 6)
	binary.BigEndian.PutUint32(buf[4:8], ssrc)
	binary.BigEndian.PutUint32(buf[8:12], uint32(unixSeconds+ntpEpochOffset))
	binary.BigEndian.PutUint32(buf[12:16], 0) // NTP fraction, unused
	binary.BigEndian.PutUint32(buf[16:20], rtpTimestamp)
	binary.BigEndian.PutUint32(buf[20:24], packetCount)
	binary.BigEndian.PutUint32(buf[24:28], octetCount)

	return buf
}
