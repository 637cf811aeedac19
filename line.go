package serialline

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// drainChunk is the scratch size for a single drain of the port.
const drainChunk = 4096

// port is the subset of serial.Port the line needs. Tests substitute a
// scripted implementation.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// Line is a buffered reader/writer over a serial device. It owns the port
// handle, an accumulator of drained-but-unconsumed bytes, and the live line
// configuration.
//
// A Line is a single-owner object: calls on one instance must be serialized
// by the caller. Read mutates the accumulator in a drain-then-dispatch
// sequence that is not safe to interleave.
type Line struct {
	cfg  Config
	port port
	buf  []byte
	log  *zap.Logger
}

// Option configures a Line at Open time.
type Option func(*Line)

// WithLogger installs a logger for diagnostics. Without it the line is
// silent.
func WithLogger(log *zap.Logger) Option {
	return func(l *Line) { l.log = log }
}

// Open opens the serial device described by cfg and returns a Line ready for
// read/write calls. Enumerated fields are validated before the device is
// touched.
func Open(cfg Config, opts ...Option) (*Line, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: no device given", ErrConfiguration)
	}
	m, err := cfg.mode()
	if err != nil {
		return nil, err
	}

	l := &Line{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.openPort(m); err != nil {
		return nil, err
	}
	l.log.Info("line opened",
		zap.String("device", cfg.Device),
		zap.Int("baudrate", cfg.BaudRate),
		zap.Int("charlength", cfg.CharLength),
		zap.Stringer("parity", cfg.Parity),
		zap.Stringer("stopbits", cfg.StopBits),
		zap.Duration("timeout", cfg.Timeout))
	return l, nil
}

func (l *Line) openPort(m *serial.Mode) error {
	p, err := serial.Open(l.cfg.Device, m)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", l.cfg.Device, ErrConnection, err)
	}
	if err := p.SetReadTimeout(l.cfg.Timeout); err != nil {
		p.Close()
		return fmt.Errorf("set read timeout: %w: %w", ErrConnection, err)
	}
	l.port = p
	return nil
}

// Reopen closes the port and opens it again with the current configuration.
// Pending accumulator contents are dropped; they belong to the old
// connection. This is the reconnect primitive used by WithReconnect.
func (l *Line) Reopen() error {
	m, err := l.cfg.mode()
	if err != nil {
		return err
	}
	if l.port != nil {
		l.port.Close()
		l.port = nil
	}
	l.buf = nil
	if err := l.openPort(m); err != nil {
		return err
	}
	l.log.Info("line reopened", zap.String("device", l.cfg.Device))
	return nil
}

// Close closes the underlying port.
func (l *Line) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// Config returns the live line configuration.
func (l *Line) Config() Config {
	return l.cfg
}

// Write writes p to the serial line and returns the number of bytes actually
// written. Short writes are reported, not retried.
func (l *Line) Write(p []byte) (int, error) {
	n, err := l.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("write: %w: %w", ErrTransientIO, err)
	}
	l.log.Debug("write", zap.Int("bytes", n))
	return n, nil
}

// WriteString writes the characters of s to the serial line.
func (l *Line) WriteString(s string) (int, error) {
	return l.Write([]byte(s))
}

// drain appends whatever the port has ready to the accumulator. The port
// read blocks at most the configured timeout; a quiescent line yields n == 0.
func (l *Line) drain() (int, error) {
	chunk := make([]byte, drainChunk)
	n, err := l.port.Read(chunk)
	if err != nil {
		return 0, fmt.Errorf("drain: %w: %w", ErrTransientIO, err)
	}
	l.buf = append(l.buf, chunk[:n]...)
	return n, nil
}

// Read drains the port once and then serves the request from the
// accumulator:
//
//   - ReadRaw returns everything buffered plus a trailing NUL and empties
//     the accumulator. It never waits for more data.
//   - ReadNChar returns the first Arg bytes, fewer if less is buffered.
//   - ReadLine returns the bytes before the first newline byte and keeps the
//     remainder for the next call. With no newline buffered the whole
//     accumulator is returned; callers needing a complete line must poll.
//   - ReadRetry drains up to Arg more times, stopping at the first empty
//     drain, and returns the accumulator without consuming it.
//
// No mode blocks past the per-drain timeout.
func (l *Line) Read(req ReadRequest) ([]byte, error) {
	if req.Arg < 0 {
		return nil, fmt.Errorf("%w: negative read argument %d", ErrProtocol, req.Arg)
	}
	if _, err := l.drain(); err != nil {
		return nil, err
	}

	switch req.Mode {
	case ReadRaw:
		out := make([]byte, len(l.buf)+1)
		copy(out, l.buf)
		l.buf = l.buf[:0]
		return out, nil

	case ReadNChar:
		n := min(req.Arg, len(l.buf))
		out := make([]byte, n)
		copy(out, l.buf)
		l.buf = l.buf[n:]
		return out, nil

	case ReadLine:
		idx := bytes.IndexByte(l.buf, l.cfg.Newline)
		if idx < 0 {
			out := make([]byte, len(l.buf))
			copy(out, l.buf)
			l.buf = l.buf[:0]
			return out, nil
		}
		out := make([]byte, idx)
		copy(out, l.buf[:idx])
		l.buf = l.buf[idx+1:]
		return out, nil

	case ReadRetry:
		for i := 0; i < req.Arg; i++ {
			n, err := l.drain()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				break
			}
		}
		out := make([]byte, len(l.buf))
		copy(out, l.buf)
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown read mode %d", ErrProtocol, int(req.Mode))
}

// ReadPacked decodes the packed integer form of a read request and serves
// it. The mode tag sits in the low 4 bits, the argument above the low byte.
func (l *Line) ReadPacked(argin int) ([]byte, error) {
	req, err := DecodeReadRequest(argin)
	if err != nil {
		return nil, err
	}
	return l.Read(req)
}

// WriteRead writes msg and immediately reads the response with the packed
// read request argin.
func (l *Line) WriteRead(msg []byte, argin int) ([]byte, error) {
	req, err := DecodeReadRequest(argin)
	if err != nil {
		return nil, err
	}
	if _, err := l.Write(msg); err != nil {
		return nil, err
	}
	return l.Read(req)
}

// Clear flushes the channel-level buffers: ClearInput discards unread input
// held by the driver, ClearOutput blocks until pending output has been
// transmitted, ClearBoth does output then input. The line's own accumulator
// is left alone.
func (l *Line) Clear(opt ClearOption) error {
	switch opt {
	case ClearInput:
		if err := l.port.ResetInputBuffer(); err != nil {
			return fmt.Errorf("clear input: %w: %w", ErrTransientIO, err)
		}
	case ClearOutput:
		if err := l.port.Drain(); err != nil {
			return fmt.Errorf("clear output: %w: %w", ErrTransientIO, err)
		}
	case ClearBoth:
		if err := l.port.Drain(); err != nil {
			return fmt.Errorf("clear output: %w: %w", ErrTransientIO, err)
		}
		if err := l.port.ResetInputBuffer(); err != nil {
			return fmt.Errorf("clear input: %w: %w", ErrTransientIO, err)
		}
	default:
		return fmt.Errorf("%w: clear option has to be 0, 1 or 2, passed %d", ErrConfiguration, int(opt))
	}
	l.log.Debug("buffers cleared", zap.Int("option", int(opt)))
	return nil
}

// applyMode pushes a candidate configuration to the open port. The stored
// config is only replaced once the port has accepted the new mode, so a
// failed setter leaves the previous configuration in place.
func (l *Line) applyMode(next Config) error {
	m, err := next.mode()
	if err != nil {
		return err
	}
	if err := l.port.SetMode(m); err != nil {
		return fmt.Errorf("set mode: %w: %w", ErrTransientIO, err)
	}
	l.cfg = next
	return nil
}

// SetBaudRate changes the speed of the open line.
func (l *Line) SetBaudRate(v int) error {
	next := l.cfg
	next.BaudRate = v
	if err := l.applyMode(next); err != nil {
		return err
	}
	l.log.Debug("baudrate changed", zap.Int("baudrate", v))
	return nil
}

// SetCharLength changes the bits per character (5, 6, 7 or 8) of the open
// line.
func (l *Line) SetCharLength(bits int) error {
	next := l.cfg
	next.CharLength = bits
	if err := l.applyMode(next); err != nil {
		return err
	}
	l.log.Debug("charlength changed", zap.Int("charlength", bits))
	return nil
}

// SetParity changes the parity of the open line.
func (l *Line) SetParity(p Parity) error {
	next := l.cfg
	next.Parity = p
	if err := l.applyMode(next); err != nil {
		return err
	}
	l.log.Debug("parity changed", zap.Stringer("parity", p))
	return nil
}

// SetStopBits changes the number of stop bits of the open line.
func (l *Line) SetStopBits(s StopBits) error {
	next := l.cfg
	next.StopBits = s
	if err := l.applyMode(next); err != nil {
		return err
	}
	l.log.Debug("stopbits changed", zap.Stringer("stopbits", s))
	return nil
}

// SetTimeout changes the per-drain read timeout of the open line.
func (l *Line) SetTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: timeout has to be non-negative, passed %v", ErrConfiguration, d)
	}
	if err := l.port.SetReadTimeout(d); err != nil {
		return fmt.Errorf("set read timeout: %w: %w", ErrTransientIO, err)
	}
	l.cfg.Timeout = d
	l.log.Debug("timeout changed", zap.Duration("timeout", d))
	return nil
}

// SetNewline changes the end-of-message byte used by line reads. The value
// is the numeric code of the byte, 0 through 255.
func (l *Line) SetNewline(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: newline has to be 0..255, passed %d", ErrConfiguration, v)
	}
	l.cfg.Newline = byte(v)
	l.log.Debug("newline changed", zap.Int("newline", v))
	return nil
}

// SetParameters applies a batch of (tag, value) changes in order, routing
// each through the matching setter. The first invalid pair stops the batch;
// pairs already applied stay applied.
func (l *Line) SetParameters(params []Parameter) error {
	for _, p := range params {
		var err error
		switch p.Tag {
		case ParamTimeout:
			var d time.Duration
			if d, err = TimeoutFromMillis(p.Value); err == nil {
				err = l.SetTimeout(d)
			}
		case ParamParity:
			err = l.SetParity(Parity(p.Value))
		case ParamCharLength:
			var bits int
			if bits, err = CharLengthFromWire(p.Value); err == nil {
				err = l.SetCharLength(bits)
			}
		case ParamStopBits:
			err = l.SetStopBits(StopBits(p.Value))
		case ParamBaudRate:
			err = l.SetBaudRate(p.Value)
		case ParamNewline:
			err = l.SetNewline(p.Value)
		default:
			err = fmt.Errorf("%w: unknown parameter tag %d", ErrConfiguration, int(p.Tag))
		}
		if err != nil {
			return fmt.Errorf("parameter tag %d: %w", int(p.Tag), err)
		}
	}
	return nil
}
