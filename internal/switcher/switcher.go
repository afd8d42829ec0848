// Package switcher drives the serial video multiplexers that route one
// screen camera to the frame grabber.
package switcher

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

const (
	MinMuxID = 1
	MaxMuxID = 30
	// selectPrefix starts a crosspoint command on the main switcher.
	selectPrefix = 232
)

// Command is one write to one switcher.
type Command struct {
	Switcher int
	Bytes    []byte
}

// Route returns the writes that connect muxID to the grabber. Inputs 1-10
// sit on the main switcher, 11-20 on its second bank (fed through input 9)
// and 21-30 on the third switcher (fed through input 10).
func Route(muxID int) ([]Command, error) {
	switch {
	case muxID < MinMuxID || muxID > MaxMuxID:
		return nil, fmt.Errorf("mux id %d out of range %d-%d", muxID, MinMuxID, MaxMuxID)
	case muxID <= 10:
		return []Command{
			{Switcher: 0, Bytes: []byte{selectPrefix, 0, byte(muxID)}},
		}, nil
	case muxID <= 20:
		return []Command{
			{Switcher: 0, Bytes: []byte{selectPrefix, 1, byte(muxID - 10)}},
			{Switcher: 0, Bytes: []byte{selectPrefix, 0, 9}},
		}, nil
	default:
		return []Command{
			{Switcher: 2, Bytes: []byte{byte(muxID - 20)}},
			{Switcher: 0, Bytes: []byte{selectPrefix, 0, 10}},
		}, nil
	}
}

// Switcher owns the switcher ports, indexed as wired.
type Switcher struct {
	mu    sync.Mutex
	ports []io.WriteCloser
}

func New(ports ...io.WriteCloser) *Switcher {
	return &Switcher{ports: ports}
}

// Open opens every path with opts. Ports opened before a failure are closed.
func Open(paths []string, opts PortOptions) (*Switcher, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	ports := make([]io.WriteCloser, 0, len(paths))
	for _, path := range paths {
		port, err := serial.Open(path, mode)
		if err != nil {
			for _, p := range ports {
				_ = p.Close()
			}
			return nil, fmt.Errorf("open switcher %s: %w", path, err)
		}
		ports = append(ports, port)
	}
	return New(ports...), nil
}

// Select routes muxID to the grabber.
func (s *Switcher) Select(muxID int) error {
	cmds, err := Route(muxID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range cmds {
		if cmd.Switcher >= len(s.ports) || s.ports[cmd.Switcher] == nil {
			return fmt.Errorf("switcher %d not connected", cmd.Switcher)
		}
		if _, err := s.ports[cmd.Switcher].Write(cmd.Bytes); err != nil {
			return fmt.Errorf("write switcher %d: %w", cmd.Switcher, err)
		}
	}
	return nil
}

func (s *Switcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, p := range s.ports {
		if p != nil {
			errs = append(errs, p.Close())
		}
	}
	s.ports = nil
	return errors.Join(errs...)
}
