// Package main provides linefeed, a small TCP server that broadcasts
// newline-delimited text to every connected client. It feeds the socket
// input during development the way "nc -lk 9999" does in the tutorial:
// type lines on stdin, or replay a file at a fixed rate.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const version = "0.1.0"

type cliFlags struct {
	addr        string
	file        string
	interval    time.Duration
	repeat      bool
	showVersion bool
}

func parseCommandLineFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.addr, "addr", ":9999", "Listen address")
	flag.StringVar(&flags.file, "file", "",
		"Replay lines from this file instead of reading stdin")
	flag.DurationVar(&flags.interval, "interval", time.Second,
		"Delay between replayed lines (file mode only)")
	flag.BoolVar(&flags.repeat, "repeat", false,
		"Restart the file from the top when it ends (file mode only)")
	flag.BoolVar(&flags.showVersion, "version", false, "Show version information")

	if envAddr := os.Getenv("LINEFEED_ADDR"); envAddr != "" {
		flags.addr = envAddr
	}

	flag.Parse()
	return flags
}

// broadcaster fans lines out to every connected client.
type broadcaster struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{conns: make(map[net.Conn]struct{})}
}

func (b *broadcaster) add(conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[conn] = struct{}{}
}

func (b *broadcaster) send(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := []byte(line + "\n")
	for conn := range b.conns {
		if _, err := conn.Write(data); err != nil {
			slog.Debug("Dropping client", "remote", conn.RemoteAddr(), "error", err)
			_ = conn.Close()
			delete(b.conns, conn)
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		_ = conn.Close()
	}
	b.conns = make(map[net.Conn]struct{})
}

func main() {
	flags := parseCommandLineFlags()
	if flags.showVersion {
		fmt.Printf("linefeed version %s\n", version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(flags); err != nil {
		slog.Error("linefeed failed", "error", err)
		os.Exit(1)
	}
}

func run(flags *cliFlags) error {
	listener, err := net.Listen("tcp", flags.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", flags.addr, err)
	}
	defer func() { _ = listener.Close() }()

	b := newBroadcaster()
	defer b.closeAll()

	go acceptClients(listener, b)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	if flags.file != "" {
		slog.Info("Replaying file",
			"addr", flags.addr, "file", flags.file, "interval", flags.interval, "repeat", flags.repeat)
		go func() { done <- replayFile(flags, b) }()
	} else {
		slog.Info("Reading stdin", "addr", flags.addr)
		go func() { done <- readStdin(b) }()
	}

	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig)
		return nil
	case err := <-done:
		return err
	}
}

func acceptClients(listener net.Listener, b *broadcaster) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		slog.Info("Client connected", "remote", conn.RemoteAddr())
		b.add(conn)
	}
}

func readStdin(b *broadcaster) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		b.send(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

func replayFile(flags *cliFlags, b *broadcaster) error {
	for {
		file, err := os.Open(flags.file)
		if err != nil {
			return fmt.Errorf("open %s: %w", flags.file, err)
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			b.send(scanner.Text())
			time.Sleep(flags.interval)
		}
		scanErr := scanner.Err()
		_ = file.Close()
		if scanErr != nil {
			return fmt.Errorf("read %s: %w", flags.file, scanErr)
		}

		if !flags.repeat {
			slog.Info("File replay complete", "file", flags.file)
			return nil
		}
	}
}
