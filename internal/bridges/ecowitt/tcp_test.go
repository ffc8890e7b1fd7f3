package ecowitt

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/resilience"
)

func listen(t *testing.T, handler func(net.Conn)) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handler(conn)
	}()
	return ln
}

func TestRoundTripTimeoutSettlesOnce(t *testing.T) {
	// The server swallows the request and never answers; the deadline and
	// the blocked read race, and whichever loses must not panic or leak a
	// second settle.
	ln := listen(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		_, _ = c.Read(buf)
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	tc := &tcpClient{}
	_, err := tc.roundTrip(ctx, ln.Addr().String(), BuildFrame(CmdLiveData, nil))
	if err == nil {
		t.Fatal("roundTrip() succeeded with a mute server")
	}
	if !errors.Is(resilience.Classify(err), controller.ErrNetworkTimeout) {
		t.Errorf("classified error = %v, want ErrNetworkTimeout", resilience.Classify(err))
	}
}

func TestRoundTripServerClosesMidFrame(t *testing.T) {
	ln := listen(t, func(c net.Conn) {
		buf := make([]byte, 64)
		_, _ = c.Read(buf)
		_, _ = c.Write([]byte{0xFF}) // one header byte, then gone
		_ = c.Close()
	})

	tc := &tcpClient{}
	_, err := tc.roundTrip(context.Background(), ln.Addr().String(), BuildFrame(CmdLiveData, nil))
	if err == nil {
		t.Fatal("roundTrip() succeeded on a half-written frame")
	}
}

func TestRoundTripCommandMismatch(t *testing.T) {
	ln := listen(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		_, _ = c.Read(buf)
		_, _ = c.Write(BuildFrame(CmdSystemInfo, nil))
	})

	tc := &tcpClient{}
	_, err := tc.roundTrip(context.Background(), ln.Addr().String(), BuildFrame(CmdLiveData, nil))
	if !errors.Is(err, controller.ErrProtocolDesync) {
		t.Errorf("roundTrip() error = %v, want ErrProtocolDesync on a foreign response command", err)
	}
}

func TestRoundTripBadHeader(t *testing.T) {
	ln := listen(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 64)
		_, _ = c.Read(buf)
		_, _ = c.Write([]byte{0xDE, 0xAD, 0x0B, 0x00, 0x00, 0x0B})
	})

	tc := &tcpClient{}
	_, err := tc.roundTrip(context.Background(), ln.Addr().String(), BuildFrame(CmdLiveData, nil))
	if !errors.Is(err, controller.ErrProtocolDesync) {
		t.Errorf("roundTrip() error = %v, want ErrProtocolDesync", err)
	}
}
