package rtcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zsiec/framegraph/rtp"
)

// sinkState is the RTP socket's lifecycle, driven by Open and Close.
type sinkState int32

const (
	stateInitial sinkState = iota
	stateOpening
	stateReady
	stateFailed
	stateClosed
)

func (s sinkState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateOpening:
		return "opening"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultRTCPInterval is how often a Sender Report is emitted once at least
// one RTP packet has been sent.
const DefaultRTCPInterval = 5 * time.Second

var errNotReady = errors.New("rtcp: rtp socket not ready")

// NetworkSink writes RTP packets to a UDP socket at (remoteHost, rtpPort)
// and periodically emits RTCP Sender Reports to (remoteHost, rtpPort+1),
// gated on having sent at least one RTP packet since the last report.
type NetworkSink struct {
	log *slog.Logger

	remoteHost string
	rtpPort    int
	ssrc       uint32
	interval   time.Duration

	state atomic.Int32

	mu       sync.Mutex
	rtpConn  net.Conn
	rtcpConn net.Conn

	packetsSent atomic.Uint32
	octetsSent  atomic.Uint32
	sentSince   atomic.Bool

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewNetworkSink builds a sink targeting remoteHost:rtpPort for RTP and
// remoteHost:(rtpPort+1) for RTCP.
func NewNetworkSink(remoteHost string, rtpPort int, ssrc uint32) *NetworkSink {
	return &NetworkSink{
		log:        slog.With("component", "rtcp-network-sink", "remote", fmt.Sprintf("%s:%d", remoteHost, rtpPort)),
		remoteHost: remoteHost,
		rtpPort:    rtpPort,
		ssrc:       ssrc,
		interval:   DefaultRTCPInterval,
	}
}

// Open dials both UDP sockets asynchronously and starts the RTCP ticker.
// Packets submitted before the sink reaches ready are dropped with a
// logged warning.
func (s *NetworkSink) Open(ctx context.Context) {
	s.state.Store(int32(stateOpening))

	runCtx, cancel := context.WithCancel(ctx)
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dial()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runRTCPTicker(runCtx)
	}()
}

func (s *NetworkSink) dial() {
	rtpConn, err := net.Dial("udp", fmt.Sprintf("%s:%d", s.remoteHost, s.rtpPort))
	if err != nil {
		s.log.Error("failed to open rtp socket", "error", err)
		s.state.Store(int32(stateFailed))
		return
	}
	rtcpConn, err := net.Dial("udp", fmt.Sprintf("%s:%d", s.remoteHost, s.rtpPort+1))
	if err != nil {
		s.log.Error("failed to open rtcp socket", "error", err)
		rtpConn.Close()
		s.state.Store(int32(stateFailed))
		return
	}

	s.mu.Lock()
	s.rtpConn = rtpConn
	s.rtcpConn = rtcpConn
	s.mu.Unlock()

	s.state.Store(int32(stateReady))
}

// Send marshals and writes one RTP packet as a single datagram, updating
// the sender's cumulative packet/octet counters used by the next Sender
// Report.
func (s *NetworkSink) Send(pkt rtp.Packet) error {
	if sinkState(s.state.Load()) != stateReady {
		s.log.Warn("dropping rtp packet, socket not ready", "state", sinkState(s.state.Load()).String())
		return errNotReady
	}

	data, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("rtcp: marshal rtp packet: %w", err)
	}

	s.mu.Lock()
	conn := s.rtpConn
	s.mu.Unlock()

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("rtcp: write rtp packet: %w", err)
	}

	s.packetsSent.Add(1)
	s.octetsSent.Add(uint32(len(pkt.Payload)))
	s.sentSince.Store(true)
	return nil
}

func (s *NetworkSink) runRTCPTicker(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.sentSince.CompareAndSwap(true, false) {
				continue
			}
			s.emitSenderReport()
		}
	}
}

func (s *NetworkSink) emitSenderReport() {
	s.mu.Lock()
	conn := s.rtcpConn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	now := time.Now()
	rtpTS := uint32(math.Round(float64(now.Unix()) * float64(rtp.ClockRate)))
	report := BuildSenderReport(s.ssrc, now.Unix(), rtpTS, s.packetsSent.Load(), s.octetsSent.Load())

	if _, err := conn.Write(report); err != nil {
		s.log.Warn("failed to send rtcp sender report", "error", err)
	}
}

// Close stops the RTCP ticker and closes both sockets. Safe to call once.
func (s *NetworkSink) Close() {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()

	s.mu.Lock()
	if s.rtpConn != nil {
		s.rtpConn.Close()
	}
	if s.rtcpConn != nil {
		s.rtcpConn.Close()
	}
	s.mu.Unlock()

	s.state.Store(int32(stateClosed))
}
