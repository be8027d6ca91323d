package client

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Client speaks the rigctld line protocol to a running bridge. Each
// call opens a fresh connection; the bridge serves many short-lived
// clients so there is no point holding one open.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient creates a client for the bridge's rigctld address
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		addr:    addr,
		timeout: timeout,
	}
}

// Send transmits one command and returns the reply lines without
// their trailing newlines.
func (c *Client) Send(command string) ([]string, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	reader := bufio.NewReader(conn)
	want := replyLines(command)
	lines := make([]string, 0, want)
	for i := 0; i < want; i++ {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}
		lines = append(lines, strings.TrimRight(line, "\n"))
	}

	return lines, nil
}

// GetFrequency reads the current frequency in Hz
func (c *Client) GetFrequency() (int64, error) {
	lines, err := c.Send("f")
	if err != nil {
		return 0, err
	}
	freq, err := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected frequency reply %q", lines[0])
	}
	return freq, nil
}

// SetFrequency tunes the rig
func (c *Client) SetFrequency(freq int64) error {
	lines, err := c.Send(fmt.Sprintf("F %d", freq))
	if err != nil {
		return err
	}
	return checkRPRT(lines[0])
}

// GetMode reads the current operating mode name
func (c *Client) GetMode() (string, error) {
	lines, err := c.Send("m")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(lines[0]), nil
}

// SetMode sets the operating mode
func (c *Client) SetMode(mode string) error {
	lines, err := c.Send(fmt.Sprintf("M %s", mode))
	if err != nil {
		return err
	}
	return checkRPRT(lines[0])
}

func checkRPRT(line string) error {
	if line != "RPRT 0" {
		return fmt.Errorf("command rejected: %q", line)
	}
	return nil
}

// replyLines returns how many lines the server sends for a command.
// A bare mode query answers with mode and passband; everything else
// is a single line except the capability dump.
func replyLines(command string) int {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return 1
	}
	switch {
	case fields[0] == "\\dump_state":
		return 5
	case (fields[0] == "m" || fields[0] == "M") && len(fields) == 1:
		return 2
	default:
		return 1
	}
}
