package ecowitt

import (
	"fmt"

	"github.com/verdantio/grow-core/internal/controller"
)

// Gateway binary protocol constants.
//
// Every frame, in both directions, is laid out as:
//
//	Byte 0-1: Fixed header 0xFF 0xFF
//	Byte 2:   Command byte
//	Byte 3-4: Payload size (big-endian)
//	Byte 5+:  Payload
//	Last:     Checksum = sum of bytes from the command byte through the
//	          end of the payload, truncated to 8 bits
const (
	headerByte = 0xFF

	// frameHeaderLen covers header(2) + command(1) + size(2).
	frameHeaderLen = 5

	// CmdLiveData requests the gateway's current sensor values.
	CmdLiveData byte = 0x0B

	// CmdSystemInfo requests gateway model and firmware information.
	CmdSystemInfo byte = 0x0C
)

// BuildFrame constructs an outbound command frame.
//
// Parameters:
//   - cmd: Command byte (CmdLiveData, CmdSystemInfo)
//   - payload: Command payload (may be nil)
//
// Returns:
//   - []byte: Complete frame ready to write to the gateway socket
func BuildFrame(cmd byte, payload []byte) []byte {
	size := len(payload)
	buf := make([]byte, 0, frameHeaderLen+size+1)
	buf = append(buf, headerByte, headerByte, cmd, byte(size>>8), byte(size)) //nolint:gosec // size bounded by frame payloads
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf[2:]))
	return buf
}

// checksum sums bytes modulo 256.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ParseFrame validates an inbound frame and extracts its payload.
//
// A prefix other than 0xFF 0xFF means the stream is misaligned with the
// protocol; that is a fatal parse error for this read (ErrProtocolDesync),
// never a transient one, since retrying a desynced stream cannot help.
//
// Parameters:
//   - data: Complete raw frame as read from the socket
//
// Returns:
//   - cmd: The frame's command byte
//   - payload: The declared-size payload slice (view into data)
//   - error: ErrProtocolDesync on bad header, short frame, size mismatch,
//     or checksum mismatch
func ParseFrame(data []byte) (cmd byte, payload []byte, err error) {
	if len(data) < frameHeaderLen+1 {
		return 0, nil, fmt.Errorf("%w: frame too short (%d bytes)", controller.ErrProtocolDesync, len(data))
	}
	if data[0] != headerByte || data[1] != headerByte {
		return 0, nil, fmt.Errorf("%w: bad frame header % X", controller.ErrProtocolDesync, data[0:2])
	}

	size := int(data[3])<<8 | int(data[4])
	if len(data) < frameHeaderLen+size+1 {
		return 0, nil, fmt.Errorf("%w: truncated frame (declared %d payload bytes, have %d)",
			controller.ErrProtocolDesync, size, len(data)-frameHeaderLen-1)
	}

	payload = data[frameHeaderLen : frameHeaderLen+size]
	want := checksum(data[2 : frameHeaderLen+size])
	got := data[frameHeaderLen+size]
	if want != got {
		return 0, nil, fmt.Errorf("%w: checksum mismatch (want %#02x, got %#02x)",
			controller.ErrProtocolDesync, want, got)
	}

	return data[2], payload, nil
}
