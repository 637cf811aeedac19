//go:build linux

package serialline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-line/echotest"
)

func openEchoLine(t *testing.T) *Line {
	t.Helper()

	srv, err := echotest.Start()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	cfg := Config{
		Device:     srv.Path(),
		BaudRate:   115200,
		CharLength: 8,
		Parity:     ParityNone,
		StopBits:   StopBitsOne,
		Timeout:    50 * time.Millisecond,
		Newline:    '\n',
	}
	line, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { line.Close() })
	return line
}

func TestLine_EchoRoundTrip(t *testing.T) {
	line := openEchoLine(t)

	n, err := line.WriteString("ping\n")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	// retry drains until the echo has travelled through the pty
	out, err := line.Read(ReadRequest{Mode: ReadRetry, Arg: 20})
	require.NoError(t, err)
	require.Equal(t, []byte("ping\n"), out)

	// the retry read left the buffer intact; raw consumes it, NUL-terminated
	out, err = line.Read(ReadRequest{Mode: ReadRaw})
	require.NoError(t, err)
	require.Equal(t, []byte("ping\n\x00"), out)
}

func TestLine_EchoLineMode(t *testing.T) {
	line := openEchoLine(t)

	_, err := line.WriteString("AB\nCD\n")
	require.NoError(t, err)

	// accumulate the full echo first, then split it
	_, err = line.Read(ReadRequest{Mode: ReadRetry, Arg: 20})
	require.NoError(t, err)

	out, err := line.Read(ReadRequest{Mode: ReadLine})
	require.NoError(t, err)
	require.Equal(t, []byte("AB"), out)

	out, err = line.Read(ReadRequest{Mode: ReadLine})
	require.NoError(t, err)
	require.Equal(t, []byte("CD"), out)
}

func TestLine_SettersOnOpenPort(t *testing.T) {
	line := openEchoLine(t)

	require.NoError(t, line.SetBaudRate(9600))
	require.NoError(t, line.SetTimeout(20*time.Millisecond))
	require.NoError(t, line.SetNewline('\r'))

	cfg := line.Config()
	require.Equal(t, 9600, cfg.BaudRate)
	require.Equal(t, 20*time.Millisecond, cfg.Timeout)
	require.Equal(t, byte('\r'), cfg.Newline)
}

func TestLine_ReopenSameDevice(t *testing.T) {
	line := openEchoLine(t)

	require.NoError(t, line.Reopen())

	_, err := line.WriteString("still here\n")
	require.NoError(t, err)
	out, err := line.Read(ReadRequest{Mode: ReadRetry, Arg: 20})
	require.NoError(t, err)
	require.Equal(t, []byte("still here\n"), out)
}

func TestOpen_MissingDevice(t *testing.T) {
	cfg := Config{
		Device:     "/dev/does-not-exist",
		BaudRate:   9600,
		CharLength: 8,
		Parity:     ParityNone,
		StopBits:   StopBitsOne,
	}
	_, err := Open(cfg)
	require.ErrorIs(t, err, ErrConnection)
}

func TestWithReconnect_ReopensOnTransientFailure(t *testing.T) {
	line := openEchoLine(t)

	// sabotage the port so the first read fails mid-operation
	line.port = &mockPort{readErr: errBroken}

	out, err := WithReconnect(line, func() ([]byte, error) {
		return line.Read(ReadRequest{Mode: ReadRaw})
	})
	require.NoError(t, err)
	require.Equal(t, []byte{0}, out)
}
