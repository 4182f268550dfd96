package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"github.com/modbusengine/modbus-engine"
	"github.com/modbusengine/modbus-engine/poller"
	"github.com/modbusengine/modbus-engine/server"
	"gopkg.in/yaml.v3"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// This variant of the poller is aimed at fields served by local serial hardware rather than a
// network gateway: a `server_address` of `serial:///dev/ttyUSB0?baud=9600` is opened directly
// with github.com/tarm/serial instead of being dialed over TCP/UDP. Any other scheme falls back
// to poller.DefaultConnectClient, so a single config file can still mix both kinds of fields.
type config struct {
	Defaults modbus.BuilderDefaults `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
	Fields   []field                `json:"fields" yaml:"fields" mapstructure:"fields"`
}

type field struct {
	modbus.Field `yaml:",inline"`
	Scale        float64 `json:"scale,omitempty" yaml:"scale,omitempty" mapstructure:"scale"`
}

func main() {
	var configLoc string
	flag.StringVar(&configLoc, "config", "config.yaml", "path to yaml or json configuration")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	rawConfig, err := os.ReadFile(configLoc) // #nosec G304
	if err != nil {
		logger.Error("reading config file failed", "err", err)
		return
	}

	conf, err := parseConfig(configLoc, rawConfig)
	if err != nil {
		logger.Error("config unmarshalling failed", "err", err)
		return
	}

	scales := map[string]float64{}
	b := modbus.NewRequestBuilderWithConfig(conf.Defaults)
	for _, f := range conf.Fields {
		if f.Scale != 0 {
			scales[f.Name] = f.Scale
		}
		b.AddField(f.Field)
	}
	batches, err := b.Split()
	if err != nil {
		logger.Error("splitting fields to requests failed", "err", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	p := poller.NewPollerWithConfig(batches, poller.Config{Logger: logger, ConnectFunc: connectClient})
	go func() {
		for {
			select {
			case result := <-p.ResultChan:
				values := map[string]any{}
				for _, v := range result.Values {
					if v.Error != nil {
						continue
					}
					value := v.Value
					if scale, ok := scales[v.Field.Name]; ok {
						value = scaleValue(scale, value)
					}
					values[v.Field.Name] = value
				}
				if len(values) == 0 {
					continue
				}
				raw, err := json.Marshal(struct {
					Time   time.Time      `json:"time"`
					Values map[string]any `json:"values"`
				}{
					Time:   result.Time,
					Values: values,
				})
				if err != nil {
					logger.Error("failed to marshal result", "err", err)
					continue
				}
				fmt.Printf("%s\n", raw)
			case <-ctx.Done():
				return
			}
		}
	}()

	if err = p.Poll(ctx); err != nil {
		logger.Error("polling ended with failure", "err", err)
		return
	}
	logger.Info("polling ended")
}

// connectClient dials batchAddress the regular network way, unless it uses the "serial" scheme,
// in which case the named device is opened directly through github.com/tarm/serial.
func connectClient(ctx context.Context, batchProtocol modbus.ProtocolType, batchAddress string) (poller.Client, error) {
	if !strings.HasPrefix(batchAddress, "serial://") {
		return poller.DefaultConnectClient(ctx, batchProtocol, batchAddress)
	}

	u, err := url.Parse(batchAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to parse serial server address, err: %w", err)
	}
	baud := 9600
	if raw := u.Query().Get("baud"); raw != "" {
		baud, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid baud in serial server address, err: %w", err)
		}
	}
	port, err := server.OpenSerialPort(server.SerialConfig{Device: u.Path, BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %q, err: %w", u.Path, err)
	}

	var opts []modbus.SerialClientOptionFunc
	if batchProtocol == modbus.ProtocolASCII {
		opts = append(opts, modbus.WithSerialASCIIProtocol())
	}
	return modbus.NewSerialClient(port, opts...), nil
}

// parseConfig unmarshals rawConfig as YAML, unless path ends in ".json", in which case it is
// parsed as JSON. Both formats decode into the same config shape.
func parseConfig(path string, rawConfig []byte) (config, error) {
	var conf config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err := json.Unmarshal(rawConfig, &conf)
		return conf, err
	}
	err := yaml.Unmarshal(rawConfig, &conf)
	return conf, err
}

func scaleValue(scale float64, value any) any {
	// when scale=1 value will be converted to float64 type - this is a deliberate feature
	if scale == 0 {
		return value
	}

	switch v := value.(type) {
	case uint8:
		return float64(v) * scale
	case int8:
		return float64(v) * scale
	case uint16:
		return float64(v) * scale
	case int16:
		return float64(v) * scale
	case uint32:
		return float64(v) * scale
	case int32:
		return float64(v) * scale
	case uint64:
		return float64(v) * scale
	case int64:
		return float64(v) * scale
	case float32:
		return float64(v) * scale
	case float64:
		return v * scale
	}
	return value
}
