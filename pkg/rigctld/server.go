package rigctld

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/n7pkt/flbridge/pkg/flrig"
	"github.com/n7pkt/flbridge/pkg/logging"
)

// acceptTimeout keeps the accept loop checking the stop signal
const acceptTimeout = 1 * time.Second

// dumpStateBlob is the fixed capability reply for \dump_state. Hamlib
// clients parse it literally: protocol version, rig model, ITU region,
// one RX frequency range line, then an empty TX range. The bridge is
// receive-only as far as capabilities go.
const dumpStateBlob = "0\n2\n2\n150000.000000 30000000.000000 0x900 -1 -1 0x10000003 0x3\n" +
	"0 0 0 0 0 0 0\n"

// Recorder receives tune events for the history log. Implementations
// must not block the caller for long; a nil Recorder disables recording.
type Recorder interface {
	RecordTune(source string, frequency int64)
}

// Server accepts rigctld protocol connections and translates each
// command through the shared rig controller. Connections are handled
// concurrently and fail independently; the controller's internal mutex
// serializes the actual rig traffic.
type Server struct {
	addr     string
	rig      flrig.Controller
	recorder Recorder

	listener *net.TCPListener
	wg       sync.WaitGroup

	mutex sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a rigctld server listening on addr once started
func NewServer(addr string, rig flrig.Controller) *Server {
	return &Server{
		addr:  addr,
		rig:   rig,
		conns: make(map[net.Conn]struct{}),
	}
}

// SetRecorder attaches a tune event sink
func (s *Server) SetRecorder(r Recorder) {
	s.recorder = r
}

// Start binds the listener and launches the accept loop. A bind
// failure is returned to the caller; it is fatal at startup.
func (s *Server) Start(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.addr, err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind rigctld listener: %w", err)
	}
	s.listener = listener

	logging.Infof("rigctld", "listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	return nil
}

// Stop closes the listener and every live client connection, then
// waits for the handlers to drain.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}

	s.mutex.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mutex.Unlock()

	s.wg.Wait()
}

// Addr returns the bound listen address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for ctx.Err() == nil {
		s.listener.SetDeadline(time.Now().Add(acceptTimeout))

		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() == nil {
				logging.Warnf("rigctld", "accept error: %v", err)
			}
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.mutex.Lock()
	s.conns[conn] = struct{}{}
	s.mutex.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mutex.Lock()
	delete(s.conns, conn)
	s.mutex.Unlock()
}

// handleConnection runs one client's command loop. Input is reassembled
// on newline boundaries: a command may arrive split across reads, and a
// single read may carry several commands.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	logging.Infof("rigctld", "client connected from %s", conn.RemoteAddr())
	defer logging.Infof("rigctld", "client disconnected from %s", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, quit := s.dispatch(line)

		conn.SetWriteDeadline(time.Now().Add(acceptTimeout))
		if _, err := conn.Write([]byte(reply)); err != nil {
			logging.Warnf("rigctld", "write to %s failed: %v", conn.RemoteAddr(), err)
			return
		}

		if quit {
			return
		}
	}
}

// dispatch executes one command line and returns the exact reply bytes
// plus whether the connection should close.
func (s *Server) dispatch(line string) (reply string, quit bool) {
	parts := strings.Fields(line)
	command := parts[0]

	switch command {
	case "f", "F":
		if len(parts) == 1 {
			return s.getFrequency(), false
		}
		return s.setFrequency(parts[1]), false

	case "m", "M":
		if len(parts) == 1 {
			return s.getMode(), false
		}
		return s.setMode(parts[1]), false

	case "t", "T":
		// PTT stub: this bridge never transmits. Gets report RX,
		// sets are accepted and ignored.
		if len(parts) == 1 {
			return "0\n", false
		}
		return "RPRT 0\n", false

	case "q", "Q":
		return "RPRT 0\n", true

	case `\dump_state`:
		return dumpStateBlob, false

	default:
		return "RPRT -1\n", false
	}
}

func (s *Server) getFrequency() string {
	freq, err := s.rig.GetFrequency()
	if err != nil {
		logging.Warnf("rigctld", "get frequency failed: %v", err)
		return "RPRT -1\n"
	}
	return fmt.Sprintf("%d\n", freq)
}

func (s *Server) setFrequency(arg string) string {
	freq, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || freq < 0 {
		return "RPRT -1\n"
	}

	if err := s.rig.SetFrequency(freq); err != nil {
		logging.Warnf("rigctld", "set frequency %d failed: %v", freq, err)
		return "RPRT -1\n"
	}

	if s.recorder != nil {
		s.recorder.RecordTune("rigctld", freq)
	}

	return "RPRT 0\n"
}

func (s *Server) getMode() string {
	// Passband is always reported as the 0 placeholder
	return fmt.Sprintf("%s\n0\n", s.rig.GetMode())
}

func (s *Server) setMode(arg string) string {
	if err := s.rig.SetMode(flrig.NormalizeMode(arg)); err != nil {
		logging.Warnf("rigctld", "set mode %s failed: %v", arg, err)
		return "RPRT -1\n"
	}
	return "RPRT 0\n"
}
