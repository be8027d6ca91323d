package flrig

import (
	"fmt"
	"sync"
)

// MockRig implements Controller with in-memory state. It backs the
// flrig.mock deployment option and the package tests.
type MockRig struct {
	mutex sync.RWMutex

	frequency int64
	mode      Mode
	failing   bool
}

// NewMockRig creates a mock rig tuned to 20m USB
func NewMockRig() *MockRig {
	return &MockRig{
		frequency: 14074000,
		mode:      ModeUSB,
	}
}

// SetFailing makes every subsequent operation fail with ErrUnavailable,
// simulating a dead flrig endpoint.
func (r *MockRig) SetFailing(failing bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.failing = failing
}

// GetFrequency returns the mock frequency
func (r *MockRig) GetFrequency() (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.failing {
		return 0, fmt.Errorf("%w: mock rig offline", ErrUnavailable)
	}
	return r.frequency, nil
}

// SetFrequency sets the mock frequency
func (r *MockRig) SetFrequency(freq int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.failing {
		return fmt.Errorf("%w: mock rig offline", ErrUnavailable)
	}
	r.frequency = freq
	return nil
}

// GetMode returns the mock mode, USB while failing
func (r *MockRig) GetMode() Mode {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.failing {
		return ModeUSB
	}
	return r.mode
}

// SetMode sets the mock mode
func (r *MockRig) SetMode(mode Mode) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.failing {
		return fmt.Errorf("%w: mock rig offline", ErrUnavailable)
	}
	r.mode = mode
	return nil
}
