package server

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/modbusengine/modbus-engine/packet"
	"github.com/modbusengine/modbus-engine/regs"
)

// WriteEvent describes a write that FrameHandler has just applied to its Context. OnWrite is
// called with this value before Handle returns, while still holding the write lock; observers
// must not mutate the context.
type WriteEvent struct {
	// Space is "coil" or "holding".
	Space   string
	Address uint16
	Count   uint16
	// Values holds the new register/coil values. Coil values are represented as 0/1.
	Values []uint16
}

// FrameHandler implements ModbusHandler against a shared regs.Context. It classifies each request
// by function code, validates its parameters, dispatches reads and writes to the context and
// builds the matching response or Modbus exception, in the request's own wire shape. Besides the
// four read and four write function codes, it also answers Read Server ID (FC17) from its static
// ServerID/RunStatus fields and Read/Write Multiple Registers (FC23) against the holding space.
//
// Unit id handling follows RFC-adjacent real-world practice: RTU and ASCII requests (both of
// which parse into RTU-shaped packet.Request types, see packet.ParseASCIIRequest) are dropped
// silently on a unit mismatch, and a broadcast (unit 0) is processed but never answered. TCP/UDP
// requests have no broadcast concept: a mismatched unit id still gets a response, but the request
// is not applied to the context ("empty success"), mirroring widely deployed gateway behavior.
type FrameHandler struct {
	// UnitID is the unit id this handler answers for.
	UnitID uint8
	// Context is the register storage this handler reads from and writes to.
	Context *regs.Context
	// OnWrite, if set, is invoked after every successful write, before Handle returns.
	OnWrite func(WriteEvent)
	// ServerID is returned verbatim in a Read Server ID (FC17) response. Defaults to
	// "modbus-engine" when left unset.
	ServerID []byte
	// RunStatus is the run indicator byte of a Read Server ID response, 0xFF meaning "on".
	RunStatus uint8

	mu sync.RWMutex
}

// NewFrameHandler creates a FrameHandler that answers for unitID against ctx.
func NewFrameHandler(unitID uint8, ctx *regs.Context) *FrameHandler {
	return &FrameHandler{UnitID: unitID, Context: ctx, ServerID: []byte("modbus-engine"), RunStatus: 0xFF}
}

// Handle implements ModbusHandler.
func (h *FrameHandler) Handle(_ context.Context, req packet.Request) (packet.Response, error) {
	unitID := uint8(0)
	if withUnit, ok := req.(packet.RequestWithUnitID); ok {
		unitID = withUnit.Unit()
	}
	txer, isTCP := req.(packet.RequestWithTransactionID)
	broadcast := !isTCP && unitID == 0
	unitMatches := unitID == h.UnitID || broadcast

	if !isTCP && !unitMatches {
		return nil, nil // RTU/ASCII: silent drop on unit mismatch
	}

	var transactionID uint16
	if isTCP {
		transactionID = txer.TxID()
	}
	// TCP/UDP never suppress the response, but an unmatched unit id means the request must not
	// actually touch the context: that is the "processing_required=false" half of the mismatch.
	applyToContext := unitMatches

	resp, excCode := h.dispatch(req, unitID, transactionID, isTCP, applyToContext)
	if broadcast {
		return nil, nil // processed, but broadcast never gets an answer
	}
	if excCode != 0 {
		return h.exception(req.FunctionCode(), unitID, transactionID, isTCP, excCode), nil
	}
	return resp, nil
}

func (h *FrameHandler) exception(fc uint8, unitID uint8, transactionID uint16, isTCP bool, code uint8) packet.Response {
	if isTCP {
		return packet.ErrorResponseTCP{TransactionID: transactionID, UnitID: unitID, Function: fc, Code: code}
	}
	return packet.ErrorResponseRTU{UnitID: unitID, Function: fc, Code: code}
}

// dispatch validates parameters, applies the request to the context (unless apply is false, the
// TCP-unit-mismatch "empty success" case) and builds the response. excCode is non-zero when the
// request failed validation or addressing and must become a Modbus exception instead.
func (h *FrameHandler) dispatch(req packet.Request, unitID uint8, transactionID uint16, isTCP bool, apply bool) (packet.Response, uint8) {
	switch r := req.(type) {

	case *packet.ReadCoilsRequestTCP:
		return h.readCoils(unitID, transactionID, true, r.StartAddress, r.Quantity)
	case *packet.ReadCoilsRequestRTU:
		return h.readCoils(unitID, transactionID, false, r.StartAddress, r.Quantity)

	case *packet.ReadDiscreteInputsRequestTCP:
		return h.readDiscretes(unitID, transactionID, true, r.StartAddress, r.Quantity)
	case *packet.ReadDiscreteInputsRequestRTU:
		return h.readDiscretes(unitID, transactionID, false, r.StartAddress, r.Quantity)

	case *packet.ReadHoldingRegistersRequestTCP:
		return h.readHoldings(unitID, transactionID, true, r.StartAddress, r.Quantity)
	case *packet.ReadHoldingRegistersRequestRTU:
		return h.readHoldings(unitID, transactionID, false, r.StartAddress, r.Quantity)

	case *packet.ReadInputRegistersRequestTCP:
		return h.readInputs(unitID, transactionID, true, r.StartAddress, r.Quantity)
	case *packet.ReadInputRegistersRequestRTU:
		return h.readInputs(unitID, transactionID, false, r.StartAddress, r.Quantity)

	case *packet.WriteSingleCoilRequestTCP:
		return h.writeSingleCoil(unitID, transactionID, true, apply, r.Address, r.CoilState)
	case *packet.WriteSingleCoilRequestRTU:
		return h.writeSingleCoil(unitID, transactionID, false, apply, r.Address, r.CoilState)

	case *packet.WriteSingleRegisterRequestTCP:
		return h.writeSingleRegister(unitID, transactionID, true, apply, r.Address, r.Data)
	case *packet.WriteSingleRegisterRequestRTU:
		return h.writeSingleRegister(unitID, transactionID, false, apply, r.Address, r.Data)

	case *packet.WriteMultipleCoilsRequestTCP:
		return h.writeMultipleCoils(unitID, transactionID, true, apply, r.StartAddress, r.CoilCount, r.Data)
	case *packet.WriteMultipleCoilsRequestRTU:
		return h.writeMultipleCoils(unitID, transactionID, false, apply, r.StartAddress, r.CoilCount, r.Data)

	case *packet.WriteMultipleRegistersRequestTCP:
		return h.writeMultipleRegisters(unitID, transactionID, true, apply, r.StartAddress, r.RegisterCount, r.Data)
	case *packet.WriteMultipleRegistersRequestRTU:
		return h.writeMultipleRegisters(unitID, transactionID, false, apply, r.StartAddress, r.RegisterCount, r.Data)

	case *packet.ReadServerIDRequestTCP:
		return h.readServerID(unitID, transactionID, true)
	case *packet.ReadServerIDRequestRTU:
		return h.readServerID(unitID, transactionID, false)

	case *packet.ReadWriteMultipleRegistersRequestTCP:
		return h.readWriteMultipleRegisters(unitID, transactionID, true, apply,
			r.ReadStartAddress, r.ReadQuantity, r.WriteStartAddress, r.WriteQuantity, r.WriteData)
	case *packet.ReadWriteMultipleRegistersRequestRTU:
		return h.readWriteMultipleRegisters(unitID, transactionID, false, apply,
			r.ReadStartAddress, r.ReadQuantity, r.WriteStartAddress, r.WriteQuantity, r.WriteData)

	default:
		return nil, packet.ErrIllegalFunction
	}
}

func (h *FrameHandler) readServerID(unitID uint8, transactionID uint16, isTCP bool) (packet.Response, uint8) {
	if isTCP {
		return packet.ReadServerIDResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadServerIDResponse: packet.ReadServerIDResponse{
				UnitID: unitID, Status: h.RunStatus, ServerID: h.ServerID,
			},
		}, 0
	}
	return packet.ReadServerIDResponseRTU{
		ReadServerIDResponse: packet.ReadServerIDResponse{UnitID: unitID, Status: h.RunStatus, ServerID: h.ServerID},
	}, 0
}

// readWriteMultipleRegisters applies the write half before the read half, per Modbus convention,
// so that a read covering the written range observes the new values.
func (h *FrameHandler) readWriteMultipleRegisters(unitID uint8, transactionID uint16, isTCP bool, apply bool,
	readAddr, readQty, writeAddr, writeQty uint16, writeData []byte) (packet.Response, uint8) {
	if readQty < 1 || readQty > 124 {
		return nil, packet.ErrIllegalDataValue
	}
	if writeQty < 1 || writeQty > 124 || len(writeData) != int(writeQty)*2 {
		return nil, packet.ErrIllegalDataValue
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if apply {
		values := bytesToRegisters(writeData)
		if err := h.Context.SetHoldingsBulk(writeAddr, values); err != nil {
			return nil, packet.ErrIllegalDataAddress
		}
		if h.OnWrite != nil {
			h.OnWrite(WriteEvent{Space: "holding", Address: writeAddr, Count: writeQty, Values: values})
		}
	}

	readValues := make([]uint16, readQty)
	if err := h.Context.GetHoldingsBulk(readAddr, readValues); err != nil {
		return nil, packet.ErrIllegalDataAddress
	}
	data := registersToBytes(readValues)
	if isTCP {
		return packet.ReadWriteMultipleRegistersResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadWriteMultipleRegistersResponse: packet.ReadWriteMultipleRegistersResponse{
				UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data,
			},
		}, 0
	}
	return packet.ReadWriteMultipleRegistersResponseRTU{
		ReadWriteMultipleRegistersResponse: packet.ReadWriteMultipleRegistersResponse{
			UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data,
		},
	}, 0
}

func (h *FrameHandler) readCoils(unitID uint8, transactionID uint16, isTCP bool, addr, qty uint16) (packet.Response, uint8) {
	if qty < 1 || qty > 2000 {
		return nil, packet.ErrIllegalDataValue
	}
	h.mu.RLock()
	data := make([]byte, (qty+7)/8)
	err := h.Context.GetCoilsAsU8(addr, qty, data)
	h.mu.RUnlock()
	if err != nil {
		return nil, packet.ErrIllegalDataAddress
	}
	if isTCP {
		return packet.ReadCoilsResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadCoilsResponse: packet.ReadCoilsResponse{
				UnitID: unitID, CoilsByteLength: uint8(len(data)), Data: data,
			},
		}, 0
	}
	return packet.ReadCoilsResponseRTU{
		ReadCoilsResponse: packet.ReadCoilsResponse{UnitID: unitID, CoilsByteLength: uint8(len(data)), Data: data},
	}, 0
}

func (h *FrameHandler) readDiscretes(unitID uint8, transactionID uint16, isTCP bool, addr, qty uint16) (packet.Response, uint8) {
	if qty < 1 || qty > 2000 {
		return nil, packet.ErrIllegalDataValue
	}
	h.mu.RLock()
	data := make([]byte, (qty+7)/8)
	err := h.Context.GetDiscretesAsU8(addr, qty, data)
	h.mu.RUnlock()
	if err != nil {
		return nil, packet.ErrIllegalDataAddress
	}
	if isTCP {
		return packet.ReadDiscreteInputsResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadDiscreteInputsResponse: packet.ReadDiscreteInputsResponse{
				UnitID: unitID, InputsByteLength: uint8(len(data)), Data: data,
			},
		}, 0
	}
	return packet.ReadDiscreteInputsResponseRTU{
		ReadDiscreteInputsResponse: packet.ReadDiscreteInputsResponse{UnitID: unitID, InputsByteLength: uint8(len(data)), Data: data},
	}, 0
}

func (h *FrameHandler) readHoldings(unitID uint8, transactionID uint16, isTCP bool, addr, qty uint16) (packet.Response, uint8) {
	if qty < 1 || qty > 125 {
		return nil, packet.ErrIllegalDataValue
	}
	h.mu.RLock()
	values := make([]uint16, qty)
	err := h.Context.GetHoldingsBulk(addr, values)
	h.mu.RUnlock()
	if err != nil {
		return nil, packet.ErrIllegalDataAddress
	}
	data := registersToBytes(values)
	if isTCP {
		return packet.ReadHoldingRegistersResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadHoldingRegistersResponse: packet.ReadHoldingRegistersResponse{
				UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data,
			},
		}, 0
	}
	return packet.ReadHoldingRegistersResponseRTU{
		ReadHoldingRegistersResponse: packet.ReadHoldingRegistersResponse{UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data},
	}, 0
}

func (h *FrameHandler) readInputs(unitID uint8, transactionID uint16, isTCP bool, addr, qty uint16) (packet.Response, uint8) {
	if qty < 1 || qty > 125 {
		return nil, packet.ErrIllegalDataValue
	}
	h.mu.RLock()
	values := make([]uint16, qty)
	err := h.Context.GetInputsBulk(addr, values)
	h.mu.RUnlock()
	if err != nil {
		return nil, packet.ErrIllegalDataAddress
	}
	data := registersToBytes(values)
	if isTCP {
		return packet.ReadInputRegistersResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			ReadInputRegistersResponse: packet.ReadInputRegistersResponse{
				UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data,
			},
		}, 0
	}
	return packet.ReadInputRegistersResponseRTU{
		ReadInputRegistersResponse: packet.ReadInputRegistersResponse{UnitID: unitID, RegisterByteLen: uint8(len(data)), Data: data},
	}, 0
}

func (h *FrameHandler) writeSingleCoil(unitID uint8, transactionID uint16, isTCP bool, apply bool, addr uint16, state bool) (packet.Response, uint8) {
	if apply {
		h.mu.Lock()
		err := h.Context.SetCoil(addr, state)
		if err == nil && h.OnWrite != nil {
			v := uint16(0)
			if state {
				v = 1
			}
			h.OnWrite(WriteEvent{Space: "coil", Address: addr, Count: 1, Values: []uint16{v}})
		}
		h.mu.Unlock()
		if err != nil {
			return nil, packet.ErrIllegalDataAddress
		}
	}
	if isTCP {
		return packet.WriteSingleCoilResponseTCP{
			MBAPHeader:              packet.MBAPHeader{TransactionID: transactionID},
			WriteSingleCoilResponse: packet.WriteSingleCoilResponse{UnitID: unitID, StartAddress: addr, CoilState: state},
		}, 0
	}
	return packet.WriteSingleCoilResponseRTU{
		WriteSingleCoilResponse: packet.WriteSingleCoilResponse{UnitID: unitID, StartAddress: addr, CoilState: state},
	}, 0
}

func (h *FrameHandler) writeSingleRegister(unitID uint8, transactionID uint16, isTCP bool, apply bool, addr uint16, data [2]byte) (packet.Response, uint8) {
	value := binary.BigEndian.Uint16(data[:])
	if apply {
		h.mu.Lock()
		err := h.Context.SetHolding(addr, value)
		if err == nil && h.OnWrite != nil {
			h.OnWrite(WriteEvent{Space: "holding", Address: addr, Count: 1, Values: []uint16{value}})
		}
		h.mu.Unlock()
		if err != nil {
			return nil, packet.ErrIllegalDataAddress
		}
	}
	if isTCP {
		return packet.WriteSingleRegisterResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			WriteSingleRegisterResponse: packet.WriteSingleRegisterResponse{
				UnitID: unitID, Address: addr, Data: data,
			},
		}, 0
	}
	return packet.WriteSingleRegisterResponseRTU{
		WriteSingleRegisterResponse: packet.WriteSingleRegisterResponse{UnitID: unitID, Address: addr, Data: data},
	}, 0
}

func (h *FrameHandler) writeMultipleCoils(unitID uint8, transactionID uint16, isTCP bool, apply bool, addr uint16, count uint16, data []byte) (packet.Response, uint8) {
	if count < 1 || count > 1968 || len(data) != int((count+7)/8) {
		return nil, packet.ErrIllegalDataValue
	}
	if apply {
		values := make([]bool, count)
		for i := range values {
			values[i] = data[i/8]&(1<<(uint(i)%8)) != 0
		}
		h.mu.Lock()
		err := h.Context.SetCoilsBulk(addr, values)
		if err == nil && h.OnWrite != nil {
			asU16 := make([]uint16, count)
			for i, v := range values {
				if v {
					asU16[i] = 1
				}
			}
			h.OnWrite(WriteEvent{Space: "coil", Address: addr, Count: count, Values: asU16})
		}
		h.mu.Unlock()
		if err != nil {
			return nil, packet.ErrIllegalDataAddress
		}
	}
	if isTCP {
		return packet.WriteMultipleCoilsResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			WriteMultipleCoilsResponse: packet.WriteMultipleCoilsResponse{
				UnitID: unitID, StartAddress: addr, CoilCount: count,
			},
		}, 0
	}
	return packet.WriteMultipleCoilsResponseRTU{
		WriteMultipleCoilsResponse: packet.WriteMultipleCoilsResponse{UnitID: unitID, StartAddress: addr, CoilCount: count},
	}, 0
}

func (h *FrameHandler) writeMultipleRegisters(unitID uint8, transactionID uint16, isTCP bool, apply bool, addr uint16, count uint16, data []byte) (packet.Response, uint8) {
	if count < 1 || count > 123 || len(data) != int(count)*2 {
		return nil, packet.ErrIllegalDataValue
	}
	if apply {
		values := bytesToRegisters(data)
		h.mu.Lock()
		err := h.Context.SetHoldingsBulk(addr, values)
		if err == nil && h.OnWrite != nil {
			h.OnWrite(WriteEvent{Space: "holding", Address: addr, Count: count, Values: values})
		}
		h.mu.Unlock()
		if err != nil {
			return nil, packet.ErrIllegalDataAddress
		}
	}
	if isTCP {
		return packet.WriteMultipleRegistersResponseTCP{
			MBAPHeader: packet.MBAPHeader{TransactionID: transactionID},
			WriteMultipleRegistersResponse: packet.WriteMultipleRegistersResponse{
				UnitID: unitID, StartAddress: addr, RegisterCount: count,
			},
		}, 0
	}
	return packet.WriteMultipleRegistersResponseRTU{
		WriteMultipleRegistersResponse: packet.WriteMultipleRegistersResponse{UnitID: unitID, StartAddress: addr, RegisterCount: count},
	}, 0
}

func registersToBytes(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(out[i*2:i*2+2], v)
	}
	return out
}

func bytesToRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return out
}
