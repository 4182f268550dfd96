package server

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig describes the serial port carrying RTU or ASCII Modbus traffic.
type SerialConfig struct {
	// Device is the OS device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string
	// BaudRate is the serial line speed, e.g. 9600, 19200, 115200.
	BaudRate int
	// ReadTimeout bounds a single Read call on the port. Defaults to 500ms when zero.
	ReadTimeout time.Duration
}

// OpenSerialPort opens the port described by cfg, returning it as the io.ReadWriteCloser that
// both ServeSerial and modbus.NewSerialClient expect.
func OpenSerialPort(cfg SerialConfig) (io.ReadWriteCloser, error) {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 500 * time.Millisecond
	}
	return serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.BaudRate,
		ReadTimeout: readTimeout,
	})
}
