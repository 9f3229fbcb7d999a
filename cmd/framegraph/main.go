// Command framegraph wires a minimal send-side pipeline: a synthetic frame
// source, an RTP packetizer filter, and a UDP network sink emitting Sender
// Reports, to demonstrate the graph runtime end to end.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/framegraph/elements"
	"github.com/zsiec/framegraph/graph"
	"github.com/zsiec/framegraph/h265"
	"github.com/zsiec/framegraph/rtcp"
	"github.com/zsiec/framegraph/rtp"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	remoteHost := envOr("REMOTE_HOST", "127.0.0.1")
	rtpPort := envOrInt("RTP_PORT", 5004)
	ssrc := randomSSRC()

	slog.Info("framegraph starting",
		"version", version,
		"remote_host", remoteHost,
		"rtp_port", rtpPort,
		"ssrc", ssrc,
	)

	sink := rtcp.NewNetworkSink(remoteHost, rtpPort, ssrc)
	sink.Open(ctx)
	defer sink.Close()

	packetizer := rtp.NewPacketizer(ssrc)

	source := elements.NewTestSource[h265.EncodedH265Frame]("source", 33*time.Millisecond, 0, func(seq int) h265.EncodedH265Frame {
		return syntheticFrame(seq)
	})
	packetize := elements.NewMapFilter[h265.EncodedH265Frame, []rtp.Packet]("packetizer", func(frame h265.EncodedH265Frame) []rtp.Packet {
		packets, err := packetizer.Packetize(frame)
		if err != nil {
			slog.Error("failed to packetize frame", "error", err)
			return nil
		}
		return packets
	})
	network := newNetworkConsumer("network-sink", sink)

	p := graph.New()
	if err := p.BuildLinear([]graph.ChildEntry{
		graph.Owning(source),
		graph.Owning(packetize),
		graph.Owning(network),
	}); err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		p.Stop()
		return nil
	})
	g.Go(func() error {
		p.WaitForCompletion()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("pipeline error", "error", err)
		os.Exit(1)
	}
}

// networkConsumer adapts rtcp.NetworkSink, which sends one packet at a
// time, into a graph.Consumer accepting the packetizer's []rtp.Packet
// buffers.
type networkConsumer struct {
	graph.Element
	sink *rtcp.NetworkSink
}

func newNetworkConsumer(id string, sink *rtcp.NetworkSink) *networkConsumer {
	return &networkConsumer{Element: graph.NewSinkBase(id), sink: sink}
}

func (c *networkConsumer) InputPads() map[graph.PadRef]graph.InputPad {
	return map[graph.PadRef]graph.InputPad{
		graph.InputDefault: graph.NewTypedInput[[]rtp.Packet](graph.InputDefault, c.handle),
	}
}

func (c *networkConsumer) handle(ctx context.Context, handle graph.Handle, packets []rtp.Packet) error {
	for _, pkt := range packets {
		if err := c.sink.Send(pkt); err != nil {
			slog.Warn("failed to send rtp packet", "error", err)
		}
	}
	return nil
}

// syntheticFrame builds a minimal single-NAL encoded frame for the demo
// source; it carries no real HEVC bitstream, only enough shape to exercise
// packetization.
func syntheticFrame(seq int) h265.EncodedH265Frame {
	nal := make([]byte, 32)
	nal[0] = h265.NALIDRWRadl << 1
	for i := range nal[2:] {
		nal[2+i] = byte(seq + i)
	}
	return h265.EncodedH265Frame{
		Payload:    h265.EncodeAVCC([][]byte{nal}),
		PTS:        h265.Rational{Value: int64(seq), Timescale: 30},
		Duration:   h265.Rational{Value: 1, Timescale: 30},
		IsKeyframe: true,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func randomSSRC() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 1
	}
	return binary.BigEndian.Uint32(b[:])
}
