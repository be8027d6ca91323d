package gqrx

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/n7pkt/flbridge/pkg/flrig"
)

// fakeReceiver emulates GQRX's remote control endpoint
type fakeReceiver struct {
	listener net.Listener

	mutex     sync.Mutex
	frequency int64
	mode      string
	rprtOne   bool
	dropNext  bool
}

func newFakeReceiver(t *testing.T) *fakeReceiver {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	recv := &fakeReceiver{
		listener:  listener,
		frequency: 14078000,
		mode:      "USB",
	}
	go recv.serve()
	t.Cleanup(func() { listener.Close() })

	return recv
}

func (f *fakeReceiver) addr() string {
	return f.listener.Addr().String()
}

func (f *fakeReceiver) setRPRTOne(v bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.rprtOne = v
}

func (f *fakeReceiver) dropNextCommand() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.dropNext = true
}

func (f *fakeReceiver) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeReceiver) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		f.mutex.Lock()
		if f.dropNext {
			f.dropNext = false
			f.mutex.Unlock()
			return
		}

		var reply string
		switch {
		case line == "f":
			if f.rprtOne {
				reply = "RPRT 1"
			} else {
				reply = strconv.FormatInt(f.frequency, 10)
			}
		case strings.HasPrefix(line, "F "):
			if freq, err := strconv.ParseInt(line[2:], 10, 64); err == nil {
				f.frequency = freq
				reply = "RPRT 0"
			} else {
				reply = "RPRT 1"
			}
		case line == "m":
			reply = f.mode
		case strings.HasPrefix(line, "M "):
			f.mode = line[2:]
			reply = "RPRT 0"
		default:
			reply = "RPRT 1"
		}
		f.mutex.Unlock()

		fmt.Fprintf(conn, "%s\n", reply)
	}
}

func newConnectedClient(t *testing.T, recv *fakeReceiver) *Client {
	t.Helper()

	client := NewClient(recv.addr(), 2*time.Second)
	if err := client.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestClientFrequencyRoundTrip(t *testing.T) {
	recv := newFakeReceiver(t)
	client := newConnectedClient(t, recv)

	for _, freq := range []int64{1000000, 7074000, 14078000, 30000000} {
		if err := client.SetFrequency(freq); err != nil {
			t.Fatalf("SetFrequency(%d) failed: %v", freq, err)
		}

		got, err := client.GetFrequency()
		if err != nil {
			t.Fatalf("GetFrequency failed: %v", err)
		}
		if got != freq {
			t.Errorf("Expected %d Hz, got %d", freq, got)
		}
	}
}

func TestClientMode(t *testing.T) {
	recv := newFakeReceiver(t)
	client := newConnectedClient(t, recv)

	if err := client.SetMode(flrig.ModeCW); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}

	mode, err := client.GetMode()
	if err != nil {
		t.Fatalf("GetMode failed: %v", err)
	}
	if mode != flrig.ModeCW {
		t.Errorf("Expected CW, got %s", mode)
	}
}

func TestClientRPRTOneIsUnavailable(t *testing.T) {
	recv := newFakeReceiver(t)
	client := newConnectedClient(t, recv)

	recv.setRPRTOne(true)

	_, err := client.GetFrequency()
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for RPRT 1, got: %v", err)
	}

	// A protocol-level error report must not drop the connection
	if !client.IsConnected() {
		t.Error("Expected client to stay connected after RPRT 1")
	}

	recv.setRPRTOne(false)
	if _, err := client.GetFrequency(); err != nil {
		t.Errorf("Expected recovery on same connection, got: %v", err)
	}
}

func TestClientDisconnectAndReconnect(t *testing.T) {
	recv := newFakeReceiver(t)
	client := newConnectedClient(t, recv)

	// Server drops the connection mid-session
	recv.dropNextCommand()

	if _, err := client.GetFrequency(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable on dropped connection, got: %v", err)
	}
	if client.IsConnected() {
		t.Error("Expected client to mark itself disconnected")
	}

	// Fails fast without re-dialing until an explicit reconnect
	if _, err := client.GetFrequency(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected fast failure while disconnected, got: %v", err)
	}

	if err := client.Reconnect(); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if _, err := client.GetFrequency(); err != nil {
		t.Errorf("Expected working connection after reconnect, got: %v", err)
	}
}

func TestClientDialFailure(t *testing.T) {
	recv := newFakeReceiver(t)
	addr := recv.addr()
	recv.listener.Close()

	client := NewClient(addr, 500*time.Millisecond)
	if err := client.Connect(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for dead endpoint, got: %v", err)
	}
	if client.IsConnected() {
		t.Error("Expected client to remain disconnected")
	}
}
