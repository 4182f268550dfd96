package modbus

import (
	"testing"

	"github.com/modbusengine/modbus-engine/packet"
	"github.com/stretchr/testify/assert"
)

func TestParseOK(t *testing.T) {
	t.Run("matching transaction id and function code is ok", func(t *testing.T) {
		req, err := packet.NewReadHoldingRegistersRequestTCP(1, 10, 2)
		assert.NoError(t, err)

		resp, err := packet.ParseReadHoldingRegistersResponseTCP([]byte{
			byte(req.TransactionID >> 8), byte(req.TransactionID), 0x00, 0x00, 0x00, 0x05,
			0x01, 0x03, 0x04, 0x00, 0x01, 0x01, 0x02,
		})
		assert.NoError(t, err)

		code, hasException, err := ParseOK(req, resp, nil)
		assert.NoError(t, err)
		assert.False(t, hasException)
		assert.Equal(t, uint8(0), code)
	})

	t.Run("mismatched transaction id is reported as ClientError", func(t *testing.T) {
		req, err := packet.NewReadHoldingRegistersRequestTCP(1, 10, 2)
		assert.NoError(t, err)

		otherTxID := req.TransactionID + 1
		resp, err := packet.ParseReadHoldingRegistersResponseTCP([]byte{
			byte(otherTxID >> 8), byte(otherTxID), 0x00, 0x00, 0x00, 0x05,
			0x01, 0x03, 0x04, 0x00, 0x01, 0x01, 0x02,
		})
		assert.NoError(t, err)

		_, hasException, err := ParseOK(req, resp, nil)
		assert.False(t, hasException)
		assert.Error(t, err)
		var clientErr *ClientError
		assert.ErrorAs(t, err, &clientErr)
	})

	t.Run("modbus exception from Do is surfaced as exception code, not error", func(t *testing.T) {
		req, err := packet.NewReadHoldingRegistersRequestTCP(1, 10, 2)
		assert.NoError(t, err)

		doErr := &packet.ErrorResponseTCP{TransactionID: req.TransactionID, UnitID: 1, Function: packet.FunctionReadHoldingRegisters, Code: packet.ErrIllegalDataAddress}

		code, hasException, err := ParseOK(req, nil, doErr)
		assert.NoError(t, err)
		assert.True(t, hasException)
		assert.Equal(t, uint8(packet.ErrIllegalDataAddress), code)
	})

	t.Run("non-exception Do error passes through unchanged", func(t *testing.T) {
		req, err := packet.NewReadHoldingRegistersRequestTCP(1, 10, 2)
		assert.NoError(t, err)

		_, hasException, err := ParseOK(req, nil, ErrClientNotConnected)
		assert.False(t, hasException)
		assert.ErrorIs(t, err, ErrClientNotConnected)
	})
}

func TestParseU16List(t *testing.T) {
	resp, err := packet.ParseReadHoldingRegistersResponseTCP([]byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x07,
		0x01, 0x03, 0x06, 0x00, 0x01, 0x01, 0x02, 0xFF, 0xFF,
	})
	assert.NoError(t, err)

	t.Run("grows a nil destination freely", func(t *testing.T) {
		var dst []uint16
		assert.NoError(t, ParseU16List(resp, &dst))
		assert.Equal(t, []uint16{1, 0x0102, 0xFFFF}, dst)
	})

	t.Run("appends onto an existing destination", func(t *testing.T) {
		dst := append(make([]uint16, 0, 4), 9)
		assert.NoError(t, ParseU16List(resp, &dst))
		assert.Equal(t, []uint16{9, 1, 0x0102, 0xFFFF}, dst)
	})

	t.Run("signals ErrOOBContext when a fixed-capacity destination is too small", func(t *testing.T) {
		dst := make([]uint16, 0, 2)
		err := ParseU16List(resp, &dst)
		assert.ErrorIs(t, err, ErrOOBContext)
		assert.Len(t, dst, 0)
	})

	t.Run("rejects a response type with no register payload", func(t *testing.T) {
		coilsResp, err := packet.ParseReadCoilsResponseTCP([]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x04, 0x01, 0x01, 0x01, 0xFF})
		assert.NoError(t, err)

		var dst []uint16
		assert.Error(t, ParseU16List(coilsResp, &dst))
	})
}

func TestParseBools(t *testing.T) {
	req, err := packet.NewReadCoilsRequestTCP(1, 0, 10)
	assert.NoError(t, err)

	// 10 coils packed into 2 bytes: byte0 = 0xCD (binary 1100_1101), byte1 = 0x01 (6 trailing pad bits dropped)
	resp, err := packet.ParseReadCoilsResponseTCP([]byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x05,
		0x01, 0x01, 0x02, 0xCD, 0x01,
	})
	assert.NoError(t, err)

	t.Run("decodes exactly the requested quantity, ignoring trailing pad bits", func(t *testing.T) {
		var dst []bool
		assert.NoError(t, ParseBools(req, resp, &dst))
		assert.Equal(t, []bool{true, false, true, true, false, false, true, true, true, false}, dst)
	})

	t.Run("signals ErrOOBContext when a fixed-capacity destination is too small", func(t *testing.T) {
		dst := make([]bool, 0, 3)
		err := ParseBools(req, resp, &dst)
		assert.ErrorIs(t, err, ErrOOBContext)
		assert.Len(t, dst, 0)
	})
}
