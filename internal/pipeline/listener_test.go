package pipeline

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gmykhailiuta/libcamera/internal/ipa/params"
)

func TestUDPListenerReceivesFrames(t *testing.T) {
	session := newTestSession(t, &stubEngine{})

	delivered := make(chan uint32, 16)
	lp := NewLoop(LoopConfig{
		Session: session,
		Depth:   4,
		Sink: func(frame uint32, buf *params.Buffer) {
			delivered <- frame
		},
	})

	listener := NewUDPListener(UDPListenerConfig{
		Address:     "127.0.0.1:0",
		RcvBuf:      1 << 20,
		LogInterval: time.Minute,
		Loop:        lp,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	// Wait for the socket to come up
	var addr net.Addr
	deadline := time.Now().Add(5 * time.Second)
	for addr == nil {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("listener never bound a socket")
		}
		addr = listener.LocalAddr()
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		cancel()
		t.Fatalf("dial listener: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(statsFrame(t, 42)); err != nil {
		cancel()
		t.Fatalf("send frame: %v", err)
	}

	select {
	case frame := <-delivered:
		if frame != 46 {
			t.Errorf("delivered parameters for frame %d, want 46", frame)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("no parameters delivered within 5s")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("listener did not shut down after cancel")
	}
}

func TestUDPListenerBadAddress(t *testing.T) {
	listener := NewUDPListener(UDPListenerConfig{
		Address:     "not-a-real-host:badport",
		RcvBuf:      1 << 20,
		LogInterval: time.Minute,
		Loop:        NewLoop(LoopConfig{}),
	})

	if err := listener.Start(context.Background()); err == nil {
		t.Fatalf("Start succeeded with unresolvable address")
	}
}
