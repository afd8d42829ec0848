package control

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
)

const DefaultPublishEndpoint = "tcp://*:5556"

// Position is one accepted fit for one axis.
type Position struct {
	Screen string  `cbor:"screen" json:"screen"`
	Axis   string  `cbor:"axis" json:"axis"`
	Center float64 `cbor:"center" json:"center"`
	FWHM   float64 `cbor:"fwhm" json:"fwhm"`
	Units  string  `cbor:"units" json:"units"`
}

type screenMessage struct {
	Screen string `cbor:"screen"`
}

func EncodeScreen(name string) ([]byte, error) {
	return cbor.Marshal(screenMessage{Screen: name})
}

func EncodePosition(p Position) ([]byte, error) {
	return cbor.Marshal(p)
}

// Publisher owns a PUB socket. zmq sockets are not safe for concurrent use,
// so sends are serialised.
type Publisher struct {
	mu     sync.Mutex
	socket *zmq4.Socket
}

func NewPublisher(endpoint string) (*Publisher, error) {
	if endpoint == "" {
		endpoint = DefaultPublishEndpoint
	}
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("publish socket: %w", err)
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	return &Publisher{socket: socket}, nil
}

func (p *Publisher) PublishScreen(name string) error {
	msg, err := EncodeScreen(name)
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Publisher) PublishPosition(pos Position) error {
	msg, err := EncodePosition(pos)
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Publisher) send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.socket == nil {
		return fmt.Errorf("publisher closed")
	}
	_, err := p.socket.SendBytes(msg, zmq4.DONTWAIT)
	return err
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.socket == nil {
		return nil
	}
	err := p.socket.Close()
	p.socket = nil
	return err
}
