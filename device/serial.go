package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the tone generator firmware.
const DefaultBaudRate = 250000

// identifyTimeout bounds the wait for the ID reply.
const identifyTimeout = 2 * time.Second

// Serial is a tone generator on a serial port.
type Serial struct {
	port     io.ReadWriteCloser
	name     string
	logger   *slog.Logger
	timeouts atomic.Int64
}

// OpenSerial opens the named serial device at the given baud rate and checks
// that a tone generator answers. An unexpected ID is an error unless ignoreID
// is set.
func OpenSerial(name string, baud int, ignoreID bool, logger *slog.Logger) (*Serial, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(identifyTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)

	s := newSerial(name, p, logger)
	if err := s.VerifyID(); err != nil {
		if !errors.Is(err, ErrBadID) || !ignoreID {
			_ = p.Close()
			return nil, err
		}
		logger.Warn("serial: ignoring wrong device ID", "err", err)
	}
	return s, nil
}

func newSerial(name string, port io.ReadWriteCloser, logger *slog.Logger) *Serial {
	return &Serial{port: port, name: name, logger: logger}
}

// VerifyID sends CmdIdentify and compares the reply with MagicID.
func (s *Serial) VerifyID() error {
	if err := s.writeAll(IdentifyFrame(), false); err != nil {
		return fmt.Errorf("serial: identify: %w", err)
	}
	var reply [4]byte
	if err := s.readFull(reply[:]); err != nil {
		return fmt.Errorf("serial: identify: %w", err)
	}
	if reply != MagicID {
		return fmt.Errorf("%w: % X", ErrBadID, reply[:])
	}
	s.logger.Info("serial: device answered with correct ID", "id", fmt.Sprintf("% X", reply[:]))
	return nil
}

// SetTone sends a tone update. Write timeouts are retried until the frame
// is out; any other error is returned.
func (s *Serial) SetTone(freq uint16, velocity uint8) error {
	frame := ToneFrame{Frequency: freq, Velocity: velocity}
	if err := s.writeAll(frame.Encode(), true); err != nil {
		return fmt.Errorf("serial: tone update: %w", err)
	}
	return nil
}

// Reset silences the generator. It is not retried.
func (s *Serial) Reset() error {
	if err := s.writeAll(ResetFrame(), false); err != nil {
		return fmt.Errorf("serial: reset: %w", err)
	}
	return nil
}

// Timeouts returns the number of write timeouts retried so far.
func (s *Serial) Timeouts() int64 {
	return s.timeouts.Load()
}

// Close closes the underlying serial port.
func (s *Serial) Close() error {
	s.logger.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}

// writeAll writes p completely. With retry set, a timed-out write is tried
// again from the first unwritten byte.
func (s *Serial) writeAll(p []byte, retry bool) error {
	for len(p) > 0 {
		n, err := s.port.Write(p)
		p = p[n:]
		switch {
		case err == nil && n == 0:
			return io.ErrShortWrite
		case err == nil:
		case retry && isTimeout(err):
			total := s.timeouts.Add(1)
			s.logger.Warn("serial: write timed out, retrying", "total", total)
		default:
			return err
		}
	}
	return nil
}

// readFull fills buf. go.bug.st/serial reports a read timeout as zero bytes
// with no error.
func (s *Serial) readFull(buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := s.port.Read(buf[n:])
		if err != nil {
			return err
		}
		if m == 0 {
			return ErrNoReply
		}
		n += m
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// ListPorts returns the serial ports present on the system, sorted.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial: list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
