package flrig

import "errors"

// ErrUnavailable is returned when the flrig endpoint cannot be reached
// or answers with a protocol fault. Callers translate it to RPRT -1 or
// skip the current reconciliation tick; it is never fatal.
var ErrUnavailable = errors.New("flrig unavailable")

// Controller defines rig control operations shared by the rigctld
// server, the sync reconciler and the web handlers. Implementations
// must serialize access internally so concurrent callers cannot
// interleave a set and get into a torn state.
type Controller interface {
	// GetFrequency returns the current VFO frequency in Hz
	GetFrequency() (int64, error)

	// SetFrequency tunes the rig to freq Hz
	SetFrequency(freq int64) error

	// GetMode returns the current operating mode. It is total: on any
	// fault it reports ModeUSB so callers never block on mode queries.
	GetMode() Mode

	// SetMode switches the rig operating mode
	SetMode(mode Mode) error
}

// Mode is a rig operating mode as reported over the rigctld protocol.
type Mode string

const (
	ModeUSB   Mode = "USB"
	ModeLSB   Mode = "LSB"
	ModeCW    Mode = "CW"
	ModeCWR   Mode = "CWR"
	ModeAM    Mode = "AM"
	ModeFM    Mode = "FM"
	ModeRTTY  Mode = "RTTY"
	ModeRTTYR Mode = "RTTYR"
)

var knownModes = map[Mode]bool{
	ModeUSB:   true,
	ModeLSB:   true,
	ModeCW:    true,
	ModeCWR:   true,
	ModeAM:    true,
	ModeFM:    true,
	ModeRTTY:  true,
	ModeRTTYR: true,
}

// NormalizeMode maps an arbitrary mode string onto the supported mode
// set. Anything unrecognized collapses to USB. The fallback is lossy on
// purpose: flrig reports rig-specific mode names (PKT-U, DIGI, ...) that
// downstream rigctld clients would reject outright.
func NormalizeMode(s string) Mode {
	m := Mode(s)
	if knownModes[m] {
		return m
	}
	return ModeUSB
}
