package modbus

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolType identifies which Modbus wire framing a Request/Response, Field or server endpoint uses.
type ProtocolType uint8

const (
	// protocolAny means a Field/request batch does not care (or does not yet know) which protocol will
	// be used to fetch it. The splitter resolves it to the protocol of the connection it is grouped for.
	protocolAny ProtocolType = 0
	// ProtocolTCP is Modbus TCP framing: MBAP header, no CRC/LRC.
	ProtocolTCP ProtocolType = 1
	// ProtocolUDP is Modbus UDP framing. Wire shape is identical to ProtocolTCP (MBAP header, no trailer);
	// only the underlying socket type differs, which is the host's concern, not the codec's.
	ProtocolUDP ProtocolType = 2
	// ProtocolRTU is Modbus RTU framing: unit id + PDU + CRC16, typically carried over a serial line.
	ProtocolRTU ProtocolType = 3
	// ProtocolASCII is Modbus ASCII framing: ':' + hex(unit id + PDU + LRC) + CRLF.
	ProtocolASCII ProtocolType = 4
)

// String returns the lower case textual name of the protocol.
func (p ProtocolType) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolRTU:
		return "rtu"
	case ProtocolASCII:
		return "ascii"
	default:
		return "any"
	}
}

// ParseProtocolType parses the textual protocol name (case-insensitive) into a ProtocolType.
func ParseProtocolType(raw string) (ProtocolType, error) {
	switch raw {
	case "tcp", "TCP":
		return ProtocolTCP, nil
	case "udp", "UDP":
		return ProtocolUDP, nil
	case "rtu", "RTU":
		return ProtocolRTU, nil
	case "ascii", "ASCII":
		return ProtocolASCII, nil
	case "", "any":
		return protocolAny, nil
	default:
		return protocolAny, fmt.Errorf("unknown protocol type: %q", raw)
	}
}

// MarshalJSON converts ProtocolType to its JSON string form.
func (p ProtocolType) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// MarshalYAML converts ProtocolType to its YAML string form.
func (p ProtocolType) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalJSON converts a JSON string into ProtocolType.
func (p *ProtocolType) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	tmp, err := ParseProtocolType(s)
	if err != nil {
		return err
	}
	*p = tmp
	return nil
}

// UnmarshalYAML converts a YAML scalar into ProtocolType.
func (p *ProtocolType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	tmp, err := ParseProtocolType(s)
	if err != nil {
		return err
	}
	*p = tmp
	return nil
}

// Duration is a time.Duration that additionally unmarshals from JSON/YAML duration strings (e.g. "500ms")
// as well as plain nanosecond numbers, so config files can use either form.
type Duration time.Duration

// MarshalJSON converts Duration to its JSON string form (e.g. "1s500ms").
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// MarshalYAML converts Duration to its YAML string form (e.g. "1s500ms").
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON converts JSON bytes (string or number) into Duration.
func (d *Duration) UnmarshalJSON(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return d.fromAny(v)
}

// UnmarshalYAML converts a YAML node (string or number) into Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	return d.fromAny(v)
}

func (d *Duration) fromAny(v interface{}) error {
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case int:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration type: %T", v)
	}
}
