package testutil

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// LineServer is a TCP server that pushes newline-delimited text to every
// connected client. It stands in for the line source the socket input
// dials in production (the "nc -lk 9999" of the tutorial).
type LineServer struct {
	listener net.Listener

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
	wg     sync.WaitGroup
}

// NewLineServer starts a server on a random loopback port and cleans it up
// when the test finishes.
func NewLineServer(t *testing.T) *LineServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &LineServer{listener: listener}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *LineServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
	}
}

// Addr returns the listen address as host:port.
func (s *LineServer) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the listen host.
func (s *LineServer) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listen port.
func (s *LineServer) Port() int {
	_, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)
	return port
}

// ClientCount returns the number of connected clients.
func (s *LineServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// WaitForClient blocks until at least one client connects, failing the
// test on timeout.
func (s *LineServer) WaitForClient(t *testing.T, timeout time.Duration) {
	t.Helper()

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for client connection")
		case <-ticker.C:
			if s.ClientCount() > 0 {
				return
			}
		}
	}
}

// SendLine writes line plus a newline to every connected client.
func (s *LineServer) SendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("server is closed")
	}
	data := []byte(line + "\n")
	for _, conn := range s.conns {
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("write to %s: %w", conn.RemoteAddr(), err)
		}
	}
	return nil
}

// DropClients closes every client connection without stopping the server,
// for reconnect tests.
func (s *LineServer) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}

// Close stops the server and closes all client connections. Safe to call
// more than once.
func (s *LineServer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
	s.mu.Unlock()

	_ = s.listener.Close()
	s.wg.Wait()
}
