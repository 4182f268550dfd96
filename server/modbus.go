package server

import (
	"bytes"
	"context"
	"errors"
	"github.com/modbusengine/modbus-engine/packet"
)

// ModbusTCPAssembler assembles read data into complete TCP packets and calls ModbusHandler with assembled packet
type ModbusTCPAssembler struct {
	Handler  ModbusHandler
	received bytes.Buffer
}

// ReceiveRead assembles read byte until full TCP packet is formed or return an error when received data does not look like TCP packet
func (m *ModbusTCPAssembler) ReceiveRead(ctx context.Context, received []byte, bytesRead int) (response []byte, closeConnection bool) {
	m.received.Write(received)

	n, err := packet.LooksLikeModbusTCP(m.received.Bytes(), false)
	if err == packet.ErrTCPDataTooShort {
		return nil, false // wait for more data to arrive
	} else if err != nil {
		var target *packet.ErrorParseTCP
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseTCP(packet.ErrUnknown, err.Error()).Bytes(), false
	}

	p, err := packet.ParseTCPRequest(m.received.Next(n))
	if err != nil {
		var target *packet.ErrorParseTCP
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseTCP(packet.ErrUnknown, err.Error()).Bytes(), false
	}

	resp, err := m.Handler.Handle(ctx, p)
	if err != nil {
		var target *packet.ErrorParseTCP
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseTCP(packet.ErrUnknown, err.Error()).Bytes(), false
	}
	if resp == nil {
		return nil, false
	}
	return resp.Bytes(), false
}

// ModbusRTUAssembler assembles read data into complete RTU packets and calls ModbusHandler with assembled packet
type ModbusRTUAssembler struct {
	Handler  ModbusHandler
	received bytes.Buffer
}

// ReceiveRead assembles read bytes until a full RTU packet is formed. RTU framing has no inherent
// delimiter, so a frame whose CRC does not match is dropped silently: the next bytes off the wire
// are assumed to be the start of the following frame.
func (m *ModbusRTUAssembler) ReceiveRead(ctx context.Context, received []byte, bytesRead int) (response []byte, closeConnection bool) {
	m.received.Write(received)

	n, err := packet.GuessRTURequestFrameLen(m.received.Bytes())
	if errors.Is(err, packet.ErrFrameIncomplete) {
		return nil, false
	} else if err != nil {
		m.received.Reset()
		return nil, false
	}
	if m.received.Len() < n {
		return nil, false
	}

	p, err := packet.ParseRTURequestWithCRC(m.received.Next(n))
	if err != nil {
		if errors.Is(err, packet.ErrInvalidCRC) {
			return nil, false // broken CRC: drop silently, RTU has no resync marker
		}
		var target *packet.ErrorParseRTU
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseRTU(packet.ErrUnknown, err.Error()).Bytes(), false
	}

	resp, err := m.Handler.Handle(ctx, p)
	if err != nil {
		var target *packet.ErrorParseRTU
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseRTU(packet.ErrUnknown, err.Error()).Bytes(), false
	}
	if resp == nil {
		return nil, false // unit mismatch or broadcast: response suppressed
	}
	return resp.Bytes(), false
}

// ModbusASCIIAssembler assembles read data into complete ASCII packets and calls ModbusHandler with assembled packet
type ModbusASCIIAssembler struct {
	Handler  ModbusHandler
	received bytes.Buffer
}

// ReceiveRead assembles read bytes until a full CRLF-terminated ASCII frame is formed.
func (m *ModbusASCIIAssembler) ReceiveRead(ctx context.Context, received []byte, bytesRead int) (response []byte, closeConnection bool) {
	m.received.Write(received)

	n, err := packet.GuessASCIIFrameLen(m.received.Bytes())
	if errors.Is(err, packet.ErrFrameIncomplete) {
		return nil, false
	} else if err != nil {
		m.received.Reset() // resync on the next ':' start byte
		return nil, false
	}

	p, err := packet.ParseASCIIRequest(m.received.Next(n))
	if err != nil {
		if errors.Is(err, packet.ErrInvalidLRC) || errors.Is(err, packet.ErrASCIIFrameBroken) {
			return nil, false // broken envelope/LRC: drop silently, ASCII has no resync marker mid-frame
		}
		var target *packet.ErrorParseASCII
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseASCII(packet.ErrUnknown, err.Error()).Bytes(), false
	}

	resp, err := m.Handler.Handle(ctx, p)
	if err != nil {
		var target *packet.ErrorParseASCII
		if errors.As(err, &target) {
			return target.Bytes(), false
		}
		return packet.NewErrorParseASCII(packet.ErrUnknown, err.Error()).Bytes(), false
	}
	if resp == nil {
		return nil, false
	}
	return packet.NewResponseASCII(resp).Bytes(), false
}
