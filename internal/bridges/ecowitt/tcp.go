package ecowitt

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/verdantio/grow-core/internal/controller"
)

// tcpClient speaks the gateway binary protocol over a short-lived TCP
// connection, one request/response exchange per dial.
type tcpClient struct {
	dialer net.Dialer
}

// roundTrip dials addr, writes a command frame, and reads back exactly one
// validated frame for the same command.
//
// Socket events race with context cancellation: the I/O goroutine may
// produce data, an error, or nothing while ctx expires. Only the first
// outcome settles the call; a late result from the other path is dropped.
func (c *tcpClient) roundTrip(ctx context.Context, addr string, frame []byte) ([]byte, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	type outcome struct {
		payload []byte
		err     error
	}
	settled := make(chan outcome, 1)
	settle := func(o outcome) {
		select {
		case settled <- o:
		default:
		}
	}

	go func() {
		defer conn.Close()
		if _, err := conn.Write(frame); err != nil {
			settle(outcome{err: err})
			return
		}
		raw, err := readFrame(conn)
		if err != nil {
			settle(outcome{err: err})
			return
		}
		cmd, payload, err := ParseFrame(raw)
		if err != nil {
			settle(outcome{err: err})
			return
		}
		if cmd != frame[2] {
			settle(outcome{err: fmt.Errorf("%w: response command %#02x for request %#02x",
				controller.ErrProtocolDesync, cmd, frame[2])})
			return
		}
		settle(outcome{payload: payload})
	}()

	select {
	case <-ctx.Done():
		// Force the blocked read to fail; the goroutine's settle is a no-op.
		_ = conn.Close()
		return nil, ctx.Err()
	case o := <-settled:
		return o.payload, o.err
	}
}

// readFrame reads one complete frame off the wire: the five-byte header
// first, then the declared payload plus checksum byte.
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if header[0] != headerByte || header[1] != headerByte {
		return nil, fmt.Errorf("%w: bad frame header % X", controller.ErrProtocolDesync, header[0:2])
	}

	size := int(header[3])<<8 | int(header[4])
	rest := make([]byte, size+1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	return append(header, rest...), nil
}
