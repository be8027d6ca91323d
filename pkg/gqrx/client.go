package gqrx

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/n7pkt/flbridge/pkg/flrig"
)

// ErrUnavailable is returned when the receiver control channel is down
// or answers with an error report.
var ErrUnavailable = errors.New("receiver unavailable")

// Client drives a GQRX-style remote control channel: one persistent TCP
// connection, newline-terminated commands, one response line per
// command. After any I/O fault the client marks itself disconnected and
// fails fast until Reconnect is called; it never re-dials on the calling
// path. Reconnection ownership lives with the sync reconciler.
type Client struct {
	addr    string
	timeout time.Duration

	mutex  sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewClient creates a client for the receiver control endpoint at addr.
// The client starts disconnected; call Connect before use.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		addr:    addr,
		timeout: timeout,
	}
}

// Connect dials the receiver control endpoint, replacing any previous
// connection.
func (c *Client) Connect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}

	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrUnavailable, c.addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Reconnect re-establishes a dropped connection
func (c *Client) Reconnect() error {
	return c.Connect()
}

// Close shuts the control channel down
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// IsConnected reports whether the control channel is currently usable
func (c *Client) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn != nil
}

// exchange sends one command line and reads exactly one response line.
// Any I/O fault drops the connection; the caller must Reconnect.
func (c *Client) exchange(cmd string) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.conn == nil {
		return "", fmt.Errorf("%w: not connected", ErrUnavailable)
	}

	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		c.dropLocked()
		return "", fmt.Errorf("%w: send %q: %v", ErrUnavailable, cmd, err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.dropLocked()
		return "", fmt.Errorf("%w: read reply to %q: %v", ErrUnavailable, cmd, err)
	}

	return strings.TrimSpace(line), nil
}

// dropLocked closes the dead connection; mutex must be held
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// GetFrequency returns the receiver's tuned frequency in Hz
func (c *Client) GetFrequency() (int64, error) {
	reply, err := c.exchange("f")
	if err != nil {
		return 0, err
	}

	if reply == "RPRT 1" {
		return 0, fmt.Errorf("%w: receiver reported RPRT 1", ErrUnavailable)
	}

	freq, err := strconv.ParseInt(reply, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected frequency reply %q", ErrUnavailable, reply)
	}

	return freq, nil
}

// SetFrequency tunes the receiver to freq Hz
func (c *Client) SetFrequency(freq int64) error {
	reply, err := c.exchange(fmt.Sprintf("F %d", freq))
	if err != nil {
		return err
	}

	if reply != "RPRT 0" {
		return fmt.Errorf("%w: set frequency rejected: %q", ErrUnavailable, reply)
	}

	return nil
}

// GetMode returns the receiver's demodulator mode
func (c *Client) GetMode() (flrig.Mode, error) {
	reply, err := c.exchange("m")
	if err != nil {
		return flrig.ModeUSB, err
	}

	if strings.HasPrefix(reply, "RPRT") {
		return flrig.ModeUSB, fmt.Errorf("%w: receiver reported %q", ErrUnavailable, reply)
	}

	return flrig.NormalizeMode(reply), nil
}

// SetMode switches the receiver's demodulator mode
func (c *Client) SetMode(mode flrig.Mode) error {
	reply, err := c.exchange(fmt.Sprintf("M %s", mode))
	if err != nil {
		return err
	}

	if reply != "RPRT 0" {
		return fmt.Errorf("%w: set mode rejected: %q", ErrUnavailable, reply)
	}

	return nil
}
