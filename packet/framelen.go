package packet

import (
	"encoding/binary"
	"errors"
)

// ErrFrameIncomplete is returned by the frame length guessers when the given prefix does not yet
// contain enough bytes to determine the total frame length. Callers should read more bytes and
// retry; it is not a protocol violation.
var ErrFrameIncomplete = errors.New("not enough bytes to determine frame length")

// ErrFrameLenBroken is returned by the frame length guessers when the available prefix is
// internally inconsistent (bad MBAP protocol id, unknown function code) and cannot yield a frame
// length no matter how many more bytes arrive.
var ErrFrameLenBroken = errors.New("frame header is inconsistent, can not determine frame length")

// ErrFrameLenIndeterminate is returned for RTU Read Server ID responses: the device-specific
// "additional data" trailer has no declared length on the wire, so a stream reader can not derive
// the total frame length from the header alone. RTU transports must fall back to inter-frame
// timing (the classic Modbus silent-interval framing) for this one function code.
var ErrFrameLenIndeterminate = errors.New("frame length can not be derived from header for this function code")

// GuessMBAPFrameLen returns the total Modbus TCP/UDP frame length (header + PDU) from the leading
// bytes of a frame. It requires at least 6 bytes (the MBAP header up to the length field).
func GuessMBAPFrameLen(head []byte) (int, error) {
	if len(head) < 6 {
		return 0, ErrFrameIncomplete
	}
	if head[2] != 0x00 || head[3] != 0x00 {
		return 0, ErrFrameLenBroken
	}
	length := binary.BigEndian.Uint16(head[4:6])
	if length == 0 {
		return 0, ErrFrameLenBroken
	}
	return 6 + int(length), nil
}

// GuessRTURequestFrameLen returns the total RTU request frame length (unit id + PDU + CRC) from
// the leading bytes of a frame, using each function code's fixed or variable request shape.
func GuessRTURequestFrameLen(head []byte) (int, error) {
	if len(head) < 2 {
		return 0, ErrFrameIncomplete
	}
	switch head[1] {
	case FunctionReadCoils, FunctionReadDiscreteInputs, FunctionReadHoldingRegisters, FunctionReadInputRegisters,
		FunctionWriteSingleCoil, FunctionWriteSingleRegister:
		// unit + fc + 2B address/value + 2B quantity/value + 2B CRC
		return 8, nil
	case FunctionReadServerID:
		// unit + fc + 2B CRC
		return 4, nil
	case FunctionWriteMultipleCoils, FunctionWriteMultipleRegisters:
		if len(head) < 7 {
			return 0, ErrFrameIncomplete
		}
		byteCount := int(head[6])
		return 7 + byteCount + 2, nil
	case FunctionReadWriteMultipleRegisters:
		if len(head) < 11 {
			return 0, ErrFrameIncomplete
		}
		byteCount := int(head[10])
		return 11 + byteCount + 2, nil
	default:
		return 0, ErrFrameLenBroken
	}
}

// GuessRTUResponseFrameLen returns the total RTU response frame length (unit id + PDU + CRC) from
// the leading bytes of a frame. Variable-length responses derive their length from the byte-count
// field at offset 2; fixed-length responses (writes, exceptions) are derived from the function
// code alone.
func GuessRTUResponseFrameLen(head []byte) (int, error) {
	if len(head) < 3 {
		return 0, ErrFrameIncomplete
	}
	functionCode := head[1]
	if functionCode&functionCodeErrorBitmask != 0 {
		// unit + fc + 1B exception code + 2B CRC
		return 5, nil
	}
	switch functionCode {
	case FunctionReadCoils, FunctionReadDiscreteInputs, FunctionReadHoldingRegisters, FunctionReadInputRegisters,
		FunctionReadWriteMultipleRegisters:
		byteCount := int(head[2])
		return 3 + byteCount + 2, nil
	case FunctionWriteSingleCoil, FunctionWriteSingleRegister, FunctionWriteMultipleCoils, FunctionWriteMultipleRegisters:
		// unit + fc + 2B address/start + 2B value/quantity + 2B CRC
		return 8, nil
	case FunctionReadServerID:
		return 0, ErrFrameLenIndeterminate
	default:
		return 0, ErrFrameLenBroken
	}
}

// GuessASCIIFrameLen returns the total length of the first complete Modbus ASCII frame (including
// the leading ':' and trailing CRLF) found in buf, or ErrFrameIncomplete if no CRLF has arrived
// yet. ASCII framing is self-delimiting, so the total length is simply "read until CRLF".
func GuessASCIIFrameLen(buf []byte) (int, error) {
	if len(buf) == 0 || buf[0] != asciiStartByte {
		return 0, ErrFrameLenBroken
	}
	for i := 1; i+1 < len(buf); i++ {
		if buf[i] == asciiTrailer[0] && buf[i+1] == asciiTrailer[1] {
			return i + 2, nil
		}
	}
	return 0, ErrFrameIncomplete
}
