package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/n7pkt/flbridge/pkg/flrig"
	"github.com/n7pkt/flbridge/pkg/logging"
)

// Receiver is the receiver-side control channel the reconciler keeps in
// step with the rig. The reconciler owns reconnection: when the channel
// drops it retries on a longer interval while normal polling pauses.
type Receiver interface {
	GetFrequency() (int64, error)
	SetFrequency(freq int64) error
	SetMode(mode flrig.Mode) error
	IsConnected() bool
	Reconnect() error
}

// Recorder receives tune events for the history log; nil disables it
type Recorder interface {
	RecordTune(source string, frequency int64)
}

// Status is a snapshot of the reconciler's state for the web surface
type Status struct {
	LastKnownFrequency int64     `json:"last_known_frequency"`
	HasLastKnown       bool      `json:"has_last_known"`
	ReceiverConnected  bool      `json:"receiver_connected"`
	LastSyncTime       time.Time `json:"last_sync_time"`
}

// Reconciler polls the rig and the receiver on a fixed interval and
// propagates whichever side a human just changed to the other. The
// authoritative side is the one whose value moved further from the last
// known frequency; when both moved by the same amount the rig wins.
// That heuristic can misattribute simultaneous tuning on both sides; it
// is kept as-is because no better tie-break exists without timestamps
// from the endpoints.
type Reconciler struct {
	rig               flrig.Controller
	receiver          Receiver
	pollInterval      time.Duration
	reconnectInterval time.Duration
	syncMode          bool
	recorder          Recorder

	mutex     sync.RWMutex
	lastKnown int64
	hasLast   bool
	lastSync  time.Time

	lastMode    flrig.Mode
	hasLastMode bool

	nextReconnect time.Time
}

// NewReconciler creates a reconciler; syncMode additionally propagates
// rig mode changes to the receiver.
func NewReconciler(rig flrig.Controller, receiver Receiver, pollInterval, reconnectInterval time.Duration, syncMode bool) *Reconciler {
	return &Reconciler{
		rig:               rig,
		receiver:          receiver,
		pollInterval:      pollInterval,
		reconnectInterval: reconnectInterval,
		syncMode:          syncMode,
	}
}

// SetRecorder attaches a tune event sink
func (r *Reconciler) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Status returns a snapshot of the sync state
func (r *Reconciler) Status() Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return Status{
		LastKnownFrequency: r.lastKnown,
		HasLastKnown:       r.hasLast,
		ReceiverConnected:  r.receiver.IsConnected(),
		LastSyncTime:       r.lastSync,
	}
}

// Run executes the reconciliation loop until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	logging.Infof("sync", "reconciler started, polling every %s", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("sync", "reconciler stopped")
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick performs one reconciliation pass. A bad tick never terminates
// the loop: errors skip to the next interval and panics are contained.
func (r *Reconciler) tick() {
	defer func() {
		if p := recover(); p != nil {
			logging.Errorf("sync", "tick panic: %v", p)
		}
	}()

	if !r.receiver.IsConnected() {
		r.maybeReconnect()
		return
	}

	rigFreq, err := r.rig.GetFrequency()
	if err != nil {
		logging.Debugf("sync", "rig read failed, skipping tick: %v", err)
		return
	}

	recvFreq, err := r.receiver.GetFrequency()
	if err != nil {
		logging.Debugf("sync", "receiver read failed, skipping tick: %v", err)
		return
	}

	r.reconcile(rigFreq, recvFreq)

	if r.syncMode {
		r.syncModeChange()
	}
}

// reconcile applies the drift heuristic to one pair of readings
func (r *Reconciler) reconcile(rigFreq, recvFreq int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if absDiff(rigFreq, recvFreq) <= 1 {
		// Already in step; adopt the value as the new cursor
		r.lastKnown = recvFreq
		r.hasLast = true
		r.lastSync = time.Now()
		return
	}

	switch {
	case !r.hasLast:
		// First divergent reading: the rig is authoritative
		logging.Infof("sync", "initial sync: receiver %d <- rig %d", recvFreq, rigFreq)
		r.pushToReceiver(rigFreq)

	case absDiff(recvFreq, r.lastKnown) > absDiff(rigFreq, r.lastKnown):
		// Receiver moved further: a human tuned the waterfall
		logging.Infof("sync", "receiver changed: %d -> %d, updating rig", r.lastKnown, recvFreq)
		r.pushToRig(recvFreq)

	default:
		// Rig moved further (or tie): push the rig's value out
		logging.Infof("sync", "rig changed: %d -> %d, updating receiver", r.lastKnown, rigFreq)
		r.pushToReceiver(rigFreq)
	}
}

// pushToReceiver propagates freq to the receiver; mutex must be held
func (r *Reconciler) pushToReceiver(freq int64) {
	if err := r.receiver.SetFrequency(freq); err != nil {
		logging.Warnf("sync", "failed to push %d Hz to receiver: %v", freq, err)
		return
	}

	r.lastKnown = freq
	r.hasLast = true
	r.lastSync = time.Now()

	if r.recorder != nil {
		r.recorder.RecordTune("sync-rig", freq)
	}
}

// pushToRig propagates freq to the rig; mutex must be held
func (r *Reconciler) pushToRig(freq int64) {
	if err := r.rig.SetFrequency(freq); err != nil {
		logging.Warnf("sync", "failed to push %d Hz to rig: %v", freq, err)
		return
	}

	r.lastKnown = freq
	r.hasLast = true
	r.lastSync = time.Now()

	if r.recorder != nil {
		r.recorder.RecordTune("sync-receiver", freq)
	}
}

// syncModeChange pushes rig mode changes to the receiver one-way
func (r *Reconciler) syncModeChange() {
	mode := r.rig.GetMode()

	r.mutex.Lock()
	changed := !r.hasLastMode || mode != r.lastMode
	r.mutex.Unlock()

	if !changed {
		return
	}

	if err := r.receiver.SetMode(mode); err != nil {
		logging.Warnf("sync", "failed to push mode %s to receiver: %v", mode, err)
		return
	}

	r.mutex.Lock()
	r.lastMode = mode
	r.hasLastMode = true
	r.mutex.Unlock()

	logging.Infof("sync", "mode synced to receiver: %s", mode)
}

// maybeReconnect retries the receiver connection on the slower interval
func (r *Reconciler) maybeReconnect() {
	now := time.Now()
	if now.Before(r.nextReconnect) {
		return
	}
	r.nextReconnect = now.Add(r.reconnectInterval)

	if err := r.receiver.Reconnect(); err != nil {
		logging.Warnf("sync", "receiver reconnect failed, retrying in %s: %v", r.reconnectInterval, err)
		return
	}

	logging.Info("sync", "receiver reconnected")
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
