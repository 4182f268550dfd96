package modbus

import (
	"errors"
	"time"

	"github.com/modbusengine/modbus-engine/packet"
)

// ErrorFieldExtractHadError is returned by BuilderRequest.ExtractFields alongside the partial
// result slice when at least one Field failed to extract. Individual failures are available on
// the corresponding FieldValue.Error.
var ErrorFieldExtractHadError = errors.New("modbus: one or more fields had extraction error")

// BuilderDefaults are values applied to Field instances added through Builder.AddField /
// Builder.AddAll when the field itself leaves them unset (zero value).
type BuilderDefaults struct {
	ServerAddress string       `json:"server_address" yaml:"server_address" mapstructure:"server_address"`
	FunctionCode  uint8        `json:"function_code" yaml:"function_code" mapstructure:"function_code"`
	UnitID        uint8        `json:"unit_id" yaml:"unit_id" mapstructure:"unit_id"`
	Protocol      ProtocolType `json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Interval      Duration     `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// Builder helps to group extractable field values of different types into modbus requests with
// minimal amount of separate requests produced.
type Builder struct {
	config BuilderDefaults
	fields Fields
}

// NewRequestBuilder creates new Builder for given modbus server address and unit id. Fields
// added through the BField helper methods (Bit, Uint16, Coil, ...) are pre-filled with these
// values.
func NewRequestBuilder(serverAddress string, unitID uint8) *Builder {
	return NewRequestBuilderWithConfig(BuilderDefaults{
		ServerAddress: serverAddress,
		UnitID:        unitID,
	})
}

// NewRequestBuilderWithConfig creates new Builder using given BuilderDefaults. Defaults are
// applied to fields added via AddField/AddAll for whichever of their values are left unset, and
// are copied into every field created through the BField helper methods.
func NewRequestBuilderWithConfig(defaults BuilderDefaults) *Builder {
	return &Builder{
		config: defaults,
		fields: make(Fields, 0),
	}
}

// AddField adds given Field into Builder. Fields left zero (ServerAddress, UnitID, FunctionCode,
// Protocol, RequestInterval) are filled from Builder's BuilderDefaults when Split is called.
func (b *Builder) AddField(field Field) *Builder {
	b.fields = append(b.fields, field)
	return b
}

// AddAll adds all given Fields into Builder. See AddField.
func (b *Builder) AddAll(fields Fields) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// applyDefaults returns copy of field with BuilderDefaults filled in for every zero value field.
func (b *Builder) applyDefaults(field Field) Field {
	if field.ServerAddress == "" {
		field.ServerAddress = b.config.ServerAddress
	}
	if field.UnitID == 0 {
		field.UnitID = b.config.UnitID
	}
	if field.FunctionCode == 0 {
		field.FunctionCode = b.config.FunctionCode
	}
	if field.Protocol == protocolAny {
		field.Protocol = b.config.Protocol
	}
	if field.RequestInterval == 0 {
		field.RequestInterval = b.config.Interval
	}
	return field
}

// Split groups all added fields into as few BuilderRequest batches as possible, one batch per
// distinct modbus server + function code + unit id + protocol + request interval combination.
func (b *Builder) Split() ([]BuilderRequest, error) {
	resolved := make([]Field, 0, len(b.fields))
	functionCodes := map[uint8]struct{}{}
	for _, f := range b.fields {
		f = b.applyDefaults(f)
		resolved = append(resolved, f)
		functionCodes[f.FunctionCode] = struct{}{}
	}
	if len(functionCodes) == 0 {
		functionCodes[b.config.FunctionCode] = struct{}{}
	}

	result := make([]BuilderRequest, 0, len(functionCodes))
	for fc := range functionCodes {
		batches, err := split(resolved, fc, protocolAny)
		if err != nil {
			return nil, err
		}
		result = append(result, batches...)
	}
	return result, nil
}

// BuilderRequest is single modbus request built by Builder.Split, together with the Fields that
// can be extracted from its response.
type BuilderRequest struct {
	Request packet.Request

	ServerAddress   string
	UnitID          uint8
	StartAddress    uint16
	Protocol        ProtocolType
	RequestInterval time.Duration

	Fields Fields
}

// FunctionCode returns the modbus function code of the underlying Request.
func (r BuilderRequest) FunctionCode() uint8 {
	return r.Request.FunctionCode()
}

// registersResponse is implemented by register-returning responses (holding/input registers,
// read/write multiple registers, write single register).
type registersResponse interface {
	AsRegisters(requestStartAddress uint16) (*packet.Registers, error)
}

// coilResponse is implemented by responses that carry packed coil (FC1) bits.
type coilResponse interface {
	IsCoilSet(startAddress uint16, coilAddress uint16) (bool, error)
}

// discreteInputResponse is implemented by responses that carry packed discrete input (FC2) bits.
type discreteInputResponse interface {
	IsInputSet(startAddress uint16, inputAddress uint16) (bool, error)
}

// ExtractFields extracts the value of every Field in r.Fields from given response.
//
// When continueOnError is true, extraction continues for remaining fields after a per-field
// error; failing fields are reported through their own FieldValue.Error and the method returns
// ErrorFieldExtractHadError alongside the (partial) result. When false, the first per-field error
// is returned immediately together with the values extracted so far.
func (r BuilderRequest) ExtractFields(resp packet.Response, continueOnError bool) ([]FieldValue, error) {
	var registers *packet.Registers
	if reg, ok := resp.(registersResponse); ok {
		parsed, err := reg.AsRegisters(r.StartAddress)
		if err != nil {
			return nil, err
		}
		registers = parsed
	}

	values := make([]FieldValue, 0, len(r.Fields))
	hadError := false
	for _, f := range r.Fields {
		fv := FieldValue{Field: f}
		switch {
		case f.Type == FieldTypeCoil && f.FunctionCode == packet.FunctionReadDiscreteInputs:
			in, ok := resp.(discreteInputResponse)
			if !ok {
				fv.Error = errors.New("modbus: response does not carry discrete input data")
				break
			}
			fv.Value, fv.Error = in.IsInputSet(r.StartAddress, f.Address)
		case f.Type == FieldTypeCoil:
			c, ok := resp.(coilResponse)
			if !ok {
				fv.Error = errors.New("modbus: response does not carry coil data")
				break
			}
			fv.Value, fv.Error = c.IsCoilSet(r.StartAddress, f.Address)
		default:
			if registers == nil {
				fv.Error = errors.New("modbus: response does not carry register data")
				break
			}
			fv.Value, fv.Error = f.ExtractFrom(registers)
		}

		if fv.Error != nil {
			hadError = true
			if !continueOnError {
				values = append(values, fv)
				return values, fv.Error
			}
		}
		values = append(values, fv)
	}
	if hadError {
		return values, ErrorFieldExtractHadError
	}
	return values, nil
}

// FieldValue is extracted value of a Field together with the per-field extraction error (if any).
type FieldValue struct {
	Field Field
	Value any
	Error error
}
