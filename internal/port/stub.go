//go:build !linux

package port

import (
	"errors"

	"github.com/sweeney/taskpanel/internal/logic"
)

var errUnsupported = errors.New("port: not supported on this platform (requires Linux)")

// GPIOCDevPort is not available on non-Linux platforms.
type GPIOCDevPort struct{}

// NewGPIOCDevPort returns an error on non-Linux platforms.
func NewGPIOCDevPort(Config) (*GPIOCDevPort, error) { return nil, errUnsupported }

func (*GPIOCDevPort) Read(Channel) (logic.Sample, error) { return 0, errUnsupported }
func (*GPIOCDevPort) Write(Channel, logic.Sample) error  { return errUnsupported }
func (*GPIOCDevPort) Close() error                       { return nil }

// PeriphPort is not available on non-Linux platforms.
type PeriphPort struct{}

// NewPeriphPort returns an error on non-Linux platforms.
func NewPeriphPort(Config) (*PeriphPort, error) { return nil, errUnsupported }

func (*PeriphPort) Read(Channel) (logic.Sample, error) { return 0, errUnsupported }
func (*PeriphPort) Write(Channel, logic.Sample) error  { return errUnsupported }
func (*PeriphPort) Close() error                       { return nil }
