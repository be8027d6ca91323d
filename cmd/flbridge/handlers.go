package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/n7pkt/flbridge/pkg/flrig"
	"github.com/n7pkt/flbridge/pkg/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// handleGetStatus returns daemon status
func (d *BridgeDaemon) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":  Version,
		"uptime":   time.Since(d.startTime).String(),
		"callsign": d.config.Station.Callsign,
		"grid":     d.config.Station.Grid,
		"rigctld":  d.config.RigctldAddr(),
		"receiver": d.config.ReceiverAddr(),
		"sync":     d.reconciler.Status(),
	})
}

// handleGetRadio returns the current rig frequency and mode
func (d *BridgeDaemon) handleGetRadio(c *gin.Context) {
	freq, err := d.rig.GetFrequency()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "rig unavailable: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frequency": freq,
		"mode":      d.rig.GetMode(),
	})
}

// handleSetFrequency sets the rig frequency
func (d *BridgeDaemon) handleSetFrequency(c *gin.Context) {
	var req struct {
		Frequency int64 `json:"frequency" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.Frequency <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frequency must be positive"})
		return
	}

	if err := d.rig.SetFrequency(req.Frequency); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "rig unavailable: " + err.Error()})
		return
	}

	if d.tuneLog != nil {
		d.tuneLog.RecordTune("web", req.Frequency)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "frequency": req.Frequency})
}

// handleSetMode sets the rig mode, unknown names fall back to USB
func (d *BridgeDaemon) handleSetMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	mode := flrig.NormalizeMode(req.Mode)
	if err := d.rig.SetMode(mode); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "rig unavailable: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}

// handleGetConfig echoes the active configuration
func (d *BridgeDaemon) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, d.config)
}

// handleGetEvents returns recent tune events, newest first
func (d *BridgeDaemon) handleGetEvents(c *gin.Context) {
	if d.tuneLog == nil {
		c.JSON(http.StatusOK, gin.H{"events": []interface{}{}})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := d.tuneLog.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// handleStateWebSocket streams bridge state snapshots to the browser
func (d *BridgeDaemon) handleStateWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Errorf("web", "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logging.Debug("web", "websocket client connected")

	// Drain reads so we notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			state := gin.H{
				"timestamp": time.Now().UTC(),
				"sync":      d.reconciler.Status(),
			}
			if freq, err := d.rig.GetFrequency(); err == nil {
				state["frequency"] = freq
				state["mode"] = d.rig.GetMode()
			}
			if err := conn.WriteJSON(state); err != nil {
				logging.Debugf("web", "websocket client disconnected: %v", err)
				return
			}
		}
	}
}
