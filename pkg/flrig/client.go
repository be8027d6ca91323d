package flrig

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/n7pkt/flbridge/pkg/logging"
)

// Client talks to flrig's XML-RPC control endpoint. One Client is
// shared by every caller in the process; a mutex serializes the
// round trips so rig writes cannot interleave.
type Client struct {
	url   string
	rpc   *xmlrpc.Client
	mutex sync.Mutex
}

// NewClient creates a client for the flrig endpoint at url
// (e.g. http://127.0.0.1:12345). timeout bounds every round trip.
func NewClient(url string, timeout time.Duration) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
	}

	rpc, err := xmlrpc.NewClient(url, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create flrig client for %s: %w", url, err)
	}

	return &Client{
		url: url,
		rpc: rpc,
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() error {
	return c.rpc.Close()
}

// GetFrequency returns the current VFO frequency in Hz
func (c *Client) GetFrequency() (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var raw string
	if err := c.rpc.Call("rig.get_vfo", nil, &raw); err != nil {
		return 0, fmt.Errorf("%w: rig.get_vfo: %v", ErrUnavailable, err)
	}

	// flrig reports the VFO as a decimal string, sometimes with a
	// fractional part
	freq, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: rig.get_vfo returned %q", ErrUnavailable, raw)
	}

	return int64(freq), nil
}

// SetFrequency tunes the rig to freq Hz
func (c *Client) SetFrequency(freq int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.rpc.Call("rig.set_frequency", float64(freq), nil); err != nil {
		return fmt.Errorf("%w: rig.set_frequency: %v", ErrUnavailable, err)
	}

	return nil
}

// GetMode returns the rig's operating mode, normalized onto the
// supported mode set. Faults report USB so callers never stall on a
// mode query.
func (c *Client) GetMode() Mode {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var raw string
	if err := c.rpc.Call("rig.get_mode", nil, &raw); err != nil {
		logging.Warnf("flrig", "rig.get_mode failed, defaulting to USB: %v", err)
		return ModeUSB
	}

	return NormalizeMode(raw)
}

// SetMode switches the rig operating mode
func (c *Client) SetMode(mode Mode) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.rpc.Call("rig.set_mode", string(mode), nil); err != nil {
		return fmt.Errorf("%w: rig.set_mode: %v", ErrUnavailable, err)
	}

	return nil
}
