package rtcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/zsiec/framegraph/rtp"
)

func TestSinkStateString(t *testing.T) {
	t.Parallel()

	cases := map[sinkState]string{
		stateInitial: "initial",
		stateOpening: "opening",
		stateReady:   "ready",
		stateFailed:  "failed",
		stateClosed:  "closed",
		sinkState(99): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestSinkSendBeforeOpenIsDropped(t *testing.T) {
	t.Parallel()

	sink := NewNetworkSink("127.0.0.1", 40000, 1)
	err := sink.Send(rtp.Packet{Header: rtp.Header{SSRC: 1}, Payload: []byte{1, 2}})
	if err != errNotReady {
		t.Errorf("got %v, want errNotReady", err)
	}
}

// listenUDPPair finds a free (port, port+1) pair of UDP sockets bound to
// localhost, retrying a bounded number of times since the second bind can
// race another process. Skips the test if no pair is found.
func listenUDPPair(t *testing.T) (rtpConn, rtcpConn *net.UDPConn, port int) {
	t.Helper()

	for attempt := 0; attempt < 20; attempt++ {
		first, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			t.Fatalf("listen first port: %v", err)
		}
		p := first.LocalAddr().(*net.UDPAddr).Port

		second, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: p + 1})
		if err != nil {
			first.Close()
			continue
		}
		return first, second, p
	}
	t.Skip("could not find an adjacent free UDP port pair")
	return nil, nil, 0
}

func TestSinkOpenSendAndSenderReport(t *testing.T) {
	t.Parallel()

	rtpListener, rtcpListener, port := listenUDPPair(t)
	defer rtpListener.Close()
	defer rtcpListener.Close()

	sink := NewNetworkSink("127.0.0.1", port, 0xABCD1234)
	sink.interval = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink.Open(ctx)
	defer sink.Close()

	deadline := time.Now().Add(2 * time.Second)
	for sinkState(sink.state.Load()) != stateReady {
		if time.Now().After(deadline) {
			t.Fatalf("sink never became ready, state=%s", sinkState(sink.state.Load()))
		}
		time.Sleep(time.Millisecond)
	}

	pkt := rtp.Packet{
		Header:  rtp.Header{Version: 2, SSRC: 0xABCD1234, SequenceNumber: 7, Timestamp: 90000},
		Payload: []byte{0x01, 0x02, 0x03, 0x04},
	}
	if err := sink.Send(pkt); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	rtpListener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, err := rtpListener.Read(buf)
	if err != nil {
		t.Fatalf("reading rtp datagram: %v", err)
	}
	if n == 0 {
		t.Fatal("received empty rtp datagram")
	}

	rtcpListener.SetReadDeadline(time.Now().Add(2 * time.Second))
	rtcpBuf := make([]byte, 1500)
	n, err = rtcpListener.Read(rtcpBuf)
	if err != nil {
		t.Fatalf("reading rtcp sender report: %v", err)
	}
	if n != senderReportLen {
		t.Fatalf("sender report len = %d, want %d", n, senderReportLen)
	}
	if rtcpBuf[1] != 200 {
		t.Errorf("rtcp packet type = %d, want 200", rtcpBuf[1])
	}
}

func TestSinkDialFailureMarksFailed(t *testing.T) {
	t.Parallel()

	// ".invalid" is reserved by RFC 2606 to never resolve, forcing a dial error.
	sink := NewNetworkSink("host.invalid", 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink.Open(ctx)
	defer sink.Close()

	deadline := time.Now().Add(2 * time.Second)
	for sinkState(sink.state.Load()) == stateOpening {
		if time.Now().After(deadline) {
			t.Fatalf("sink stuck opening, want failed")
		}
		time.Sleep(time.Millisecond)
	}
	if got := sinkState(sink.state.Load()); got != stateFailed {
		t.Errorf("state = %s, want failed", got)
	}
}
