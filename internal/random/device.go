// Package random provides the entropy sources used for salts, IVs and
// identifiers.
package random

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dtroode/keybox/internal/model"
)

// Candidates lists entropy devices in order of preference.
var Candidates = []string{"/dev/urandom", "/dev/random"}

var _ model.RandomSource = (*Device)(nil)

// Device reads random bytes from an OS entropy device.
type Device struct {
	path string
}

// NewDevice returns a Device for path after checking that it can be read.
func NewDevice(path string) (*Device, error) {
	if err := checkReadable(path); err != nil {
		return nil, model.NewConfigurationError("random device", path, err)
	}
	return &Device{path: path}, nil
}

// Path returns the device path.
func (d *Device) Path() string {
	return d.path
}

// RandomBytes reads exactly n bytes from the device.
func (d *Device) RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative byte count %d", n)
	}
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open random device: %w", err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes from %s: %w", n, d.path, err)
	}
	return buf, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	return nil
}

var (
	mu       sync.Mutex
	fallback *Device
)

// Default returns the process-wide default device, resolving it from
// Candidates on first use.
func Default() (*Device, error) {
	mu.Lock()
	defer mu.Unlock()

	if fallback != nil {
		return fallback, nil
	}
	d, err := resolve(Candidates)
	if err != nil {
		return nil, err
	}
	fallback = d
	return fallback, nil
}

// SetDefault replaces the process-wide default device. The replacement must
// be readable now; otherwise the current default is kept.
func SetDefault(path string) (*Device, error) {
	d, err := NewDevice(path)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	fallback = d
	mu.Unlock()

	return d, nil
}

func resolve(candidates []string) (*Device, error) {
	for _, path := range candidates {
		if checkReadable(path) == nil {
			return &Device{path: path}, nil
		}
	}
	return nil, model.NewConfigurationError("random device", fmt.Sprint(candidates), errors.New("no readable entropy device"))
}
