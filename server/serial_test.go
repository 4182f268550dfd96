package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/modbusengine/modbus-engine/packet"
	"github.com/modbusengine/modbus-engine/regs"
	"github.com/stretchr/testify/assert"
)

func TestServer_ServeSerial(t *testing.T) {
	portSide, testSide := net.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	regCtx := regs.NewContext(0, 0, 16, 0)
	assert.NoError(t, regCtx.SetHolding(10, 0x0102))
	h := NewFrameHandler(1, regCtx)

	s := &Server{}
	go func() {
		_ = s.ServeSerial(ctx, portSide, h, nil)
	}()

	req, err := packet.NewReadHoldingRegistersRequestRTU(1, 10, 1)
	assert.NoError(t, err)

	written := make(chan error, 1)
	go func() {
		_, err := testSide.Write(req.Bytes())
		written <- err
	}()
	assert.NoError(t, <-written)

	received := make([]byte, 300)
	_ = testSide.SetReadDeadline(time.Now().Add(1 * time.Second))
	n, err := testSide.Read(received)
	assert.NoError(t, err)

	resp, err := packet.ParseRTUResponseWithCRC(received[:n])
	assert.NoError(t, err)

	rtuResp, ok := resp.(packet.ReadHoldingRegistersResponseRTU)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, rtuResp.Data)
}
