package pipeline

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// UDPListener handles receiving statistics frames from UDP and feeding
// them through the frame loop. It manages the UDP socket, traffic
// statistics, and periodic logging.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	buffer      []byte
	loop        *Loop

	mu        sync.Mutex
	localAddr net.Addr
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Loop        *Loop
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: config.LogInterval,
		buffer:      make([]byte, 65536), // largest frame is well under 64 KiB
		loop:        config.Loop,
	}
}

// LocalAddr reports the bound socket address once Start has opened the
// socket, or nil before that.
func (l *UDPListener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.localAddr
}

// Start begins listening for statistics frames and processing them.
// Returns when the context is cancelled or an unrecoverable error occurs.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %v", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %v", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		logf("Warning: failed to set UDP receive buffer to %d bytes: %v (some OSes clamp buffer sizes)", l.rcvBuf, err)
	}

	l.mu.Lock()
	l.localAddr = conn.LocalAddr()
	l.mu.Unlock()

	logf("Listening for 3A statistics frames on %s", conn.LocalAddr())

	// Start periodic logging goroutine
	go l.startStatsLogging(ctx)

	timeoutCount := 0
	for {
		select {
		case <-ctx.Done():
			logf("UDP listener shutting down")
			return ctx.Err()
		default:
			// Set a read timeout to allow checking for context cancellation
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				logf("Error setting read deadline: %v", err)
				continue
			}

			n, _, err := conn.ReadFromUDP(l.buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					// Timeout is expected, continue the loop
					timeoutCount++
					if timeoutCount%10 == 0 {
						logf("No statistics frames received for %d seconds", timeoutCount)
					}
					continue
				}
				logf("Error reading UDP packet: %v", err)
				continue
			}
			timeoutCount = 0

			// The loop parses out of the reused buffer; everything it
			// keeps past this call is copied during parsing.
			if err := l.loop.HandleFrame(l.buffer[:n]); err != nil {
				logf("Error handling statistics frame: %v", err)
			}
		}
	}
}

// startStatsLogging starts a goroutine that logs statistics at regular intervals
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.loop.Stats().LogStats()
		}
	}
}
