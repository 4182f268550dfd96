package modbus

import (
	"errors"
	"fmt"

	"github.com/modbusengine/modbus-engine/packet"
)

// ErrOOBContext is returned by ParseU16List/ParseBools when the caller-supplied destination slice
// was given a fixed capacity (made with make([]T, 0, n)) and the response carries more values than
// that capacity allows. The destination is left unmodified.
var ErrOOBContext = errors.New("modbus: destination capacity exceeded")

// ParseOK validates a response returned by Client.Do against the request that produced it.
//
// When doErr wraps a Modbus exception (packet.ErrorResponseTCP, packet.ErrorResponseRTU or
// packet.ErrorResponseASCII, as returned by Client.Do on an exception reply) ParseOK reports it
// through exceptionCode/hasException instead of treating it as a validation failure - an exception
// is a well-formed answer, just not a successful one. Any other non-nil doErr (CRC/LRC failure,
// transport error, truncated read) is returned unchanged, since Client.Do already rejects those
// before a Response is ever produced.
//
// Given a non-error response, ParseOK checks that its MBAP transaction id (TCP/UDP only - RTU and
// ASCII carry none) matches req's, and that its function code equals req's. Either mismatch is
// reported as a *ClientError, since it indicates a response meant for a different request made it
// onto this connection.
func ParseOK(req packet.Request, resp packet.Response, doErr error) (exceptionCode uint8, hasException bool, err error) {
	if doErr != nil {
		if code, ok := exceptionCodeOf(doErr); ok {
			return code, true, nil
		}
		return 0, false, doErr
	}
	if resp == nil {
		return 0, false, &ClientError{Err: errors.New("response is nil")}
	}

	if reqTx, ok := req.(packet.RequestWithTransactionID); ok {
		respTx, ok := unwrapResponse(resp).(interface{ TxID() uint16 })
		if !ok || respTx.TxID() != reqTx.TxID() {
			return 0, false, &ClientError{Err: fmt.Errorf("response transaction id does not match request")}
		}
	}
	if resp.FunctionCode() != req.FunctionCode() {
		return 0, false, &ClientError{Err: fmt.Errorf("response function code %d does not match request function code %d", resp.FunctionCode(), req.FunctionCode())}
	}
	return 0, false, nil
}

func exceptionCodeOf(err error) (uint8, bool) {
	var tcpErr *packet.ErrorResponseTCP
	if errors.As(err, &tcpErr) {
		return tcpErr.Code, true
	}
	var rtuErr *packet.ErrorResponseRTU
	if errors.As(err, &rtuErr) {
		return rtuErr.Code, true
	}
	var asciiErr *packet.ErrorResponseASCII
	if errors.As(err, &asciiErr) {
		return asciiErr.Code, true
	}
	return 0, false
}

func unwrapResponse(resp packet.Response) packet.Response {
	if a, ok := resp.(interface{ Unwrap() packet.Response }); ok {
		return a.Unwrap()
	}
	return resp
}

// registerData extracts the raw register payload out of the read/read-write register response
// types that carry one, TCP or RTU (ASCII is unwrapped first).
func registerData(resp packet.Response) ([]byte, error) {
	switch r := unwrapResponse(resp).(type) {
	case *packet.ReadHoldingRegistersResponseTCP:
		return r.Data, nil
	case *packet.ReadHoldingRegistersResponseRTU:
		return r.Data, nil
	case *packet.ReadInputRegistersResponseTCP:
		return r.Data, nil
	case *packet.ReadInputRegistersResponseRTU:
		return r.Data, nil
	case *packet.ReadWriteMultipleRegistersResponseTCP:
		return r.Data, nil
	case *packet.ReadWriteMultipleRegistersResponseRTU:
		return r.Data, nil
	default:
		return nil, fmt.Errorf("modbus: response of type %T does not carry a register list", resp)
	}
}

// coilData extracts the raw coil/discrete-input bitfield payload out of the response types that
// carry one, TCP or RTU (ASCII is unwrapped first).
func coilData(resp packet.Response) ([]byte, error) {
	switch r := unwrapResponse(resp).(type) {
	case *packet.ReadCoilsResponseTCP:
		return r.Data, nil
	case *packet.ReadCoilsResponseRTU:
		return r.Data, nil
	case *packet.ReadDiscreteInputsResponseTCP:
		return r.Data, nil
	case *packet.ReadDiscreteInputsResponseRTU:
		return r.Data, nil
	default:
		return nil, fmt.Errorf("modbus: response of type %T does not carry a coil list", resp)
	}
}

// coilQuantity returns how many coils/discrete inputs req asked to read. The response payload is
// always byte-aligned (padded with zero bits up to the next full byte), so this is the only place
// that knows the true count; without it ParseBools would hand back up to 7 meaningless padding bits.
func coilQuantity(req packet.Request) (uint16, error) {
	switch r := unwrapRequest(req).(type) {
	case *packet.ReadCoilsRequestTCP:
		return r.Quantity, nil
	case *packet.ReadCoilsRequestRTU:
		return r.Quantity, nil
	case *packet.ReadDiscreteInputsRequestTCP:
		return r.Quantity, nil
	case *packet.ReadDiscreteInputsRequestRTU:
		return r.Quantity, nil
	default:
		return 0, fmt.Errorf("modbus: request of type %T does not carry a coil quantity", req)
	}
}

func unwrapRequest(req packet.Request) packet.Request {
	if a, ok := req.(interface{ Unwrap() packet.Request }); ok {
		return a.Unwrap()
	}
	return req
}

// ParseU16List decodes the register payload of resp (a reply to a FC03/FC04/FC23 request) as a
// sequence of big-endian uint16 values and appends them to *dst.
//
// *dst's capacity policy is the caller's: a nil or zero-capacity slice grows freely, while a slice
// made with a fixed capacity (make([]uint16, 0, n)) bounds how many values ParseU16List will ever
// write - once appending would exceed that capacity, ErrOOBContext is returned and *dst is left
// untouched.
func ParseU16List(resp packet.Response, dst *[]uint16) error {
	data, err := registerData(resp)
	if err != nil {
		return err
	}
	if len(data)%2 != 0 {
		return fmt.Errorf("modbus: register payload length %d is not a multiple of 2", len(data))
	}
	count := len(data) / 2
	if cap(*dst) > 0 && len(*dst)+count > cap(*dst) {
		return ErrOOBContext
	}
	for i := 0; i < count; i++ {
		*dst = append(*dst, uint16(data[i*2])<<8|uint16(data[i*2+1]))
	}
	return nil
}

// ParseBools decodes the coil/discrete-input payload of resp (a reply to req, a FC01/FC02 request)
// into individual bit values and appends them to *dst, one bool per coil, least significant bit
// first within each payload byte. req is needed to know how many of the response's bits are real:
// Modbus pads the last payload byte with zero bits, which ParseBools must not mistake for coils.
//
// *dst's capacity policy is the caller's, the same as ParseU16List: a fixed-capacity slice bounds
// how many bits get written, signaling ErrOOBContext instead of growing past it.
func ParseBools(req packet.Request, resp packet.Response, dst *[]bool) error {
	data, err := coilData(resp)
	if err != nil {
		return err
	}
	quantity, err := coilQuantity(req)
	if err != nil {
		return err
	}
	count := int(quantity)
	if count > len(data)*8 {
		return fmt.Errorf("modbus: requested quantity %d exceeds payload of %d bytes", quantity, len(data))
	}
	if cap(*dst) > 0 && len(*dst)+count > cap(*dst) {
		return ErrOOBContext
	}
	for i := 0; i < count; i++ {
		b := data[i/8]
		*dst = append(*dst, b&(1<<(uint(i)%8)) != 0)
	}
	return nil
}
