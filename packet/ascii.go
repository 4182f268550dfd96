package packet

import (
	"bytes"
	"encoding/hex"
	"errors"
)

// asciiStartByte is the leading byte (':') that marks the start of a Modbus ASCII frame.
const asciiStartByte = ':'

// asciiTrailer is the CRLF sequence that terminates every Modbus ASCII frame.
var asciiTrailer = []byte{'\r', '\n'}

// ErrASCIIFrameBroken is returned when a buffer does not look like a well-formed Modbus ASCII
// frame: missing leading ':', missing CRLF trailer, odd number of hex digits or non-hex content.
var ErrASCIIFrameBroken = errors.New("data is not a well-formed Modbus ASCII frame")

// ErrInvalidLRC is returned when the decoded LRC byte does not match the computed checksum of
// the preceding bytes.
var ErrInvalidLRC = errors.New("packet longitudinal redundancy check does not match Modbus ASCII packet bytes")

// LRC calculates the Modbus ASCII longitudinal redundancy check: two's complement of the sum of
// given bytes, low byte only.
func LRC(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return uint8(-int8(sum))
}

// EncodeASCIIFrame wraps raw (unit id + PDU, without LRC) into a complete Modbus ASCII frame:
// ':' + uppercase-hex(raw + LRC(raw)) + CRLF.
func EncodeASCIIFrame(raw []byte) []byte {
	withLRC := make([]byte, len(raw)+1)
	copy(withLRC, raw)
	withLRC[len(raw)] = LRC(raw)

	result := make([]byte, 0, 1+len(withLRC)*2+2)
	result = append(result, asciiStartByte)
	hexBody := make([]byte, hex.EncodedLen(len(withLRC)))
	hex.Encode(hexBody, withLRC)
	result = append(result, bytes.ToUpper(hexBody)...)
	result = append(result, asciiTrailer...)
	return result
}

// DecodeASCIIFrame strips and validates the ':' ... CRLF envelope of an ASCII frame, hex-decodes
// the body (accepting either case) and verifies its trailing LRC byte. It returns the raw unit
// id + PDU bytes with the LRC stripped off.
func DecodeASCIIFrame(data []byte) ([]byte, error) {
	if len(data) < 1+2+2 || data[0] != asciiStartByte {
		return nil, ErrASCIIFrameBroken
	}
	if !bytes.HasSuffix(data, asciiTrailer) {
		return nil, ErrASCIIFrameBroken
	}
	hexBody := data[1 : len(data)-2]
	if len(hexBody)%2 != 0 {
		return nil, ErrASCIIFrameBroken
	}
	withLRC := make([]byte, hex.DecodedLen(len(hexBody)))
	if _, err := hex.Decode(withLRC, hexBody); err != nil {
		return nil, ErrASCIIFrameBroken
	}
	if len(withLRC) < 2 {
		return nil, ErrASCIIFrameBroken
	}
	raw := withLRC[:len(withLRC)-1]
	wantLRC := withLRC[len(withLRC)-1]
	if LRC(raw) != wantLRC {
		return nil, ErrInvalidLRC
	}
	return raw, nil
}

// ParseASCIIRequest parses a complete Modbus ASCII frame into a request packet. It decodes the
// envelope and delegates to the RTU request parsers, which already accept a unit id + PDU payload
// with or without a trailing CRC. Classify-stage failures from those parsers surface as
// *ErrorParseRTU; they are rewrapped into *ErrorParseASCII so callers on the ASCII transport get
// back an error type that matches the transport the request actually arrived on.
func ParseASCIIRequest(data []byte) (Request, error) {
	raw, err := DecodeASCIIFrame(data)
	if err != nil {
		return nil, err
	}
	req, err := ParseRTURequest(raw)
	if err != nil {
		var rtuErr *ErrorParseRTU
		if errors.As(err, &rtuErr) {
			asciiErr := NewErrorParseASCII(rtuErr.Packet.Code, rtuErr.Message)
			asciiErr.Packet.UnitID = rtuErr.Packet.UnitID
			asciiErr.Packet.Function = rtuErr.Packet.Function
			return nil, asciiErr
		}
		return nil, NewErrorParseASCII(ErrUnknown, err.Error())
	}
	return req, nil
}

// ParseASCIIResponse parses a complete Modbus ASCII frame into a response packet or an
// ErrorResponseASCII. It decodes the envelope and delegates to the RTU response parsers, padding
// the decoded unit id + PDU with a dummy 2-byte trailer since those parsers are sized for the
// RTU wire shape (unit + PDU + CRC) but do not themselves verify the CRC bytes.
func ParseASCIIResponse(data []byte) (Response, error) {
	raw, err := DecodeASCIIFrame(data)
	if err != nil {
		return nil, err
	}
	if err := AsASCIIErrorPacket(raw); err != nil {
		return nil, err
	}
	padded := append(raw, 0, 0)
	return ParseRTUResponse(padded)
}

// AsASCIIErrorPacketFromStream checks an in-progress read buffer (raw wire bytes, not yet
// decoded) for a complete ASCII error frame. It is safe to call on a partially-received buffer:
// until the ':' start byte and CRLF trailer are both present it returns nil rather than an error,
// so a client read loop can keep waiting for more bytes instead of treating a short read as broken.
func AsASCIIErrorPacketFromStream(data []byte) error {
	if len(data) == 0 || data[0] != asciiStartByte || !bytes.HasSuffix(data, asciiTrailer) {
		return nil
	}
	raw, err := DecodeASCIIFrame(data)
	if err != nil {
		return nil
	}
	return AsASCIIErrorPacket(raw)
}

// AsASCIIErrorPacket converts an already-decoded unit id + PDU payload (LRC stripped) to a Modbus
// ASCII error response if possible.
func AsASCIIErrorPacket(raw []byte) error {
	if len(raw) != 3 {
		return nil
	}
	errorFunctionCode := raw[1] & functionCodeErrorBitmask
	if errorFunctionCode != 0 {
		return &ErrorResponseASCII{
			UnitID:   raw[0],
			Function: raw[1] - functionCodeErrorBitmask,
			Code:     raw[2],
		}
	}
	return nil
}

// NewErrorParseASCII creates new instance of a parsing error that can be sent to the client.
func NewErrorParseASCII(code uint8, message string) *ErrorParseASCII {
	return &ErrorParseASCII{
		Message: message,
		Packet: ErrorResponseASCII{
			UnitID:   0,
			Function: 0,
			Code:     code,
		},
	}
}

// ErrorParseASCII is a parsing error that can be sent to the client.
type ErrorParseASCII struct {
	Message string
	Packet  ErrorResponseASCII
}

// Error translates error code to error message.
func (e ErrorParseASCII) Error() string {
	return e.Message
}

// Bytes returns ErrorParseASCII packet as bytes form.
func (e ErrorParseASCII) Bytes() []byte {
	return e.Packet.Bytes()
}

// ErrorResponseASCII is an ASCII error response sent by server to client.
type ErrorResponseASCII struct {
	UnitID   uint8
	Function uint8
	Code     uint8
}

// Error translates error code to error message.
func (re ErrorResponseASCII) Error() string {
	return errorText(re.Code)
}

// Bytes returns ErrorResponseASCII packet as bytes form.
func (re ErrorResponseASCII) Bytes() []byte {
	raw := []byte{re.UnitID, re.Function + functionCodeErrorBitmask, re.Code}
	return EncodeASCIIFrame(raw)
}

// FunctionCode returns function code to which error response originates from / was responded to.
func (re ErrorResponseASCII) FunctionCode() uint8 {
	return re.Function
}

// RequestASCII wraps a request built in its RTU wire shape and re-exposes it in ASCII wire shape.
// Request constructors only ever build the RTU/TCP form; RequestASCII lets that same request be
// sent over an ASCII transport without a separate set of ASCII-specific constructors.
type RequestASCII struct {
	inner Request
}

// NewRequestASCII wraps inner, an RTU-shaped request, for transmission over an ASCII transport.
func NewRequestASCII(inner Request) *RequestASCII {
	return &RequestASCII{inner: inner}
}

// FunctionCode returns the wrapped request's function code.
func (r *RequestASCII) FunctionCode() uint8 {
	return r.inner.FunctionCode()
}

// Bytes returns the ':' + hex + CRLF ASCII encoding of the wrapped request.
func (r *RequestASCII) Bytes() []byte {
	rtu := r.inner.Bytes()
	raw := rtu[:len(rtu)-2] // drop the RTU CRC, ASCII framing carries its own LRC instead
	return EncodeASCIIFrame(raw)
}

// Unit returns the wrapped request's unit id, if it exposes one.
func (r *RequestASCII) Unit() uint8 {
	if u, ok := r.inner.(RequestWithUnitID); ok {
		return u.Unit()
	}
	return 0
}

// Unwrap returns the RTU-shaped request this ASCII request was built from.
func (r *RequestASCII) Unwrap() Request {
	return r.inner
}

// ExpectedResponseLength returns how many bytes a complete ASCII-encoded response occupies:
// the wrapped request's RTU response length (unit + PDU + CRC) re-expressed as unit + PDU + LRC,
// hex-encoded and wrapped in the ':' ... CRLF envelope.
func (r *RequestASCII) ExpectedResponseLength() int {
	rtuLen := r.inner.ExpectedResponseLength()
	rawLen := rtuLen - 1 // unit + PDU + LRC instead of unit + PDU + 2B CRC
	return 1 + rawLen*2 + 2
}

// ResponseASCII wraps a response built in its RTU wire shape and re-exposes it in ASCII wire
// shape. A server answering an ASCII request parses it with ParseASCIIRequest, which delegates to
// the RTU request parsers and so produces an ordinary RTU-shaped packet.Request; any handler built
// against that request builds an RTU-shaped packet.Response in turn. ResponseASCII lets that same
// response be sent back over the ASCII transport it actually arrived on.
type ResponseASCII struct {
	inner Response
}

// NewResponseASCII wraps inner, an RTU-shaped response, for transmission over an ASCII transport.
func NewResponseASCII(inner Response) *ResponseASCII {
	return &ResponseASCII{inner: inner}
}

// FunctionCode returns the wrapped response's function code.
func (r *ResponseASCII) FunctionCode() uint8 {
	return r.inner.FunctionCode()
}

// Unwrap returns the RTU-shaped response this ASCII response was built from, so callers that
// need to inspect payload fields (register data, coil bits) can do so without an ASCII-specific
// code path.
func (r *ResponseASCII) Unwrap() Response {
	return r.inner
}

// Bytes returns the ':' + hex + CRLF ASCII encoding of the wrapped response.
func (r *ResponseASCII) Bytes() []byte {
	rtu := r.inner.Bytes()
	raw := rtu[:len(rtu)-2] // drop the RTU CRC, ASCII framing carries its own LRC instead
	return EncodeASCIIFrame(raw)
}
