//go:build linux

// Package echotest provides a pty-backed echo device for exercising a serial
// line without hardware. Clients open Path like a real port; every byte they
// write comes straight back.
package echotest

import (
	"fmt"
	"os"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Server is a loopback serial device built on a pty pair. The primary side
// is private to the echo loop; clients open the secondary side by path.
type Server struct {
	primary   *os.File
	secondary *os.File
	closeOnce sync.Once
}

// Start opens a pty pair, switches it to raw mode and begins echoing.
func Start() (*Server, error) {
	primary, secondary, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if err := makeRaw(secondary); err != nil {
		primary.Close()
		secondary.Close()
		return nil, err
	}
	s := &Server{primary: primary, secondary: secondary}
	go s.loop()
	return s, nil
}

// Path returns the device path clients should open.
func (s *Server) Path() string {
	return s.secondary.Name()
}

func (s *Server) loop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.primary.Read(buf)
		if err != nil {
			return
		}
		if _, err := s.primary.Write(buf[:n]); err != nil {
			return
		}
	}
}

// Close tears the pty pair down, which also stops the echo loop. Safe to
// call multiple times.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.primary.Close()
		s.secondary.Close()
	})
	return err
}

// makeRaw disables echo and canonical processing on the pty so the kernel
// does not duplicate what the echo loop sends back.
func makeRaw(f *os.File) error {
	fd := int(f.Fd())
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}
