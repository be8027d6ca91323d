package client

import (
	"context"
	"testing"
	"time"

	"github.com/n7pkt/flbridge/pkg/flrig"
	"github.com/n7pkt/flbridge/pkg/rigctld"
)

func startTestServer(t *testing.T) (*Client, *flrig.MockRig) {
	t.Helper()

	rig := flrig.NewMockRig()
	server := rigctld.NewServer("127.0.0.1:0", rig)

	ctx, cancel := context.WithCancel(context.Background())
	if err := server.Start(ctx); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		server.Stop()
	})

	return NewClient(server.Addr().String(), 2*time.Second), rig
}

func TestFrequencyRoundTrip(t *testing.T) {
	c, _ := startTestServer(t)

	if err := c.SetFrequency(7074000); err != nil {
		t.Fatalf("SetFrequency failed: %v", err)
	}

	freq, err := c.GetFrequency()
	if err != nil {
		t.Fatalf("GetFrequency failed: %v", err)
	}
	if freq != 7074000 {
		t.Errorf("expected 7074000, got %d", freq)
	}
}

func TestModeRoundTrip(t *testing.T) {
	c, _ := startTestServer(t)

	if err := c.SetMode("CW"); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}

	mode, err := c.GetMode()
	if err != nil {
		t.Fatalf("GetMode failed: %v", err)
	}
	if mode != "CW" {
		t.Errorf("expected CW, got %q", mode)
	}
}

func TestSendRawCommand(t *testing.T) {
	c, _ := startTestServer(t)

	t.Run("dump state", func(t *testing.T) {
		lines, err := c.Send("\\dump_state")
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if len(lines) != 5 {
			t.Errorf("expected 5 reply lines, got %d", len(lines))
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		lines, err := c.Send("bogus")
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if lines[0] != "RPRT -1" {
			t.Errorf("expected RPRT -1, got %q", lines[0])
		}
	})
}

func TestSetFrequencyRejected(t *testing.T) {
	c, rig := startTestServer(t)

	rig.SetFailing(true)
	if err := c.SetFrequency(7074000); err == nil {
		t.Error("expected error when rig is failing")
	}
}

func TestConnectFailure(t *testing.T) {
	c := NewClient("127.0.0.1:1", 500*time.Millisecond)
	if _, err := c.GetFrequency(); err == nil {
		t.Error("expected error connecting to dead address")
	}
}
