//go:build linux

package echotest

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_Echo(t *testing.T) {
	srv, err := Start()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	client, err := os.OpenFile(srv.Path(), os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	_, err = client.Write([]byte("ping\n"))
	require.NoError(t, err)

	echoed := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := client.Read(buf)
		if err != nil {
			errs <- err
			return
		}
		echoed <- string(buf[:n])
	}()

	select {
	case msg := <-echoed:
		require.Equal(t, "ping\n", msg)
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for echo")
	}
}

func TestServer_CloseTwice(t *testing.T) {
	srv, err := Start()
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
}
