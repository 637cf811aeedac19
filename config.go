package serialline

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Parity selects the parity bit of the serial line. The numeric values are
// the ones used on the wire by SetParameters.
type Parity int

const (
	ParityNone Parity = 0
	ParityOdd  Parity = 1
	ParityEven Parity = 3
)

// StopBits selects the number of stop bits. The numeric values are the ones
// used on the wire by SetParameters.
type StopBits int

const (
	StopBitsOne          StopBits = 0
	StopBitsOnePointFive StopBits = 1
	StopBitsTwo          StopBits = 2
)

// Config holds the parameters for opening a serial line.
type Config struct {
	Device     string        // device path, e.g. /dev/ttyUSB0
	BaudRate   int           // communication speed in baud, e.g. 9600, 115200
	CharLength int           // bits per character: 5, 6, 7 or 8
	Parity     Parity        // ParityNone, ParityOdd or ParityEven
	StopBits   StopBits      // StopBitsOne, StopBitsOnePointFive or StopBitsTwo
	Timeout    time.Duration // per-drain read timeout
	Newline    byte          // end-of-message byte used by line reads, e.g. '\r'
}

func (p Parity) valid() bool {
	switch p {
	case ParityNone, ParityOdd, ParityEven:
		return true
	}
	return false
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	}
	return fmt.Sprintf("Parity(%d)", int(p))
}

func (s StopBits) valid() bool {
	switch s {
	case StopBitsOne, StopBitsOnePointFive, StopBitsTwo:
		return true
	}
	return false
}

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	}
	return fmt.Sprintf("StopBits(%d)", int(s))
}

// mode translates the config into the port-level framing, validating every
// enumerated field. It never clamps: an out-of-range value is an error.
func (c Config) mode() (*serial.Mode, error) {
	if c.CharLength < 5 || c.CharLength > 8 {
		return nil, fmt.Errorf("%w: charlength has to be 5, 6, 7 or 8 bits, passed %d", ErrConfiguration, c.CharLength)
	}
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: baudrate has to be positive, passed %d", ErrConfiguration, c.BaudRate)
	}
	if c.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout has to be non-negative, passed %v", ErrConfiguration, c.Timeout)
	}

	m := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.CharLength,
	}

	switch c.Parity {
	case ParityNone:
		m.Parity = serial.NoParity
	case ParityOdd:
		m.Parity = serial.OddParity
	case ParityEven:
		m.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("%w: parity has to be none (0), odd (1) or even (3), passed %d", ErrConfiguration, int(c.Parity))
	}

	switch c.StopBits {
	case StopBitsOne:
		m.StopBits = serial.OneStopBit
	case StopBitsOnePointFive:
		m.StopBits = serial.OnePointFiveStopBits
	case StopBitsTwo:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: stopbits has to be 1 (0), 1.5 (1) or 2 (2), passed %d", ErrConfiguration, int(c.StopBits))
	}

	return m, nil
}

// CharLengthFromWire maps the wire encoding of the character length to bits
// per character: 0=8, 1=7, 2=6, 3=5.
func CharLengthFromWire(v int) (int, error) {
	switch v {
	case 0:
		return 8, nil
	case 1:
		return 7, nil
	case 2:
		return 6, nil
	case 3:
		return 5, nil
	}
	return 0, fmt.Errorf("%w: charlength wire value has to be 0..3, passed %d", ErrConfiguration, v)
}

// TimeoutFromMillis builds the drain timeout from a millisecond count as
// carried on the wire.
func TimeoutFromMillis(ms int) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("%w: timeout has to be non-negative, passed %d", ErrConfiguration, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
