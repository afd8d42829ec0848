package control

import (
	"context"
	"fmt"
	"log"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

const (
	DefaultCommandEndpoint = "tcp://*:5559"
	recvTimeout            = time.Second
)

// CommandServer answers requests on a REP socket. Handle is called for every
// recognised command except HELLO, after the reply has been sent.
type CommandServer struct {
	Endpoint string
	IsCamera func(string) bool
	Handle   func(Command)
}

// Run serves until ctx is cancelled. The receive timeout bounds how long a
// cancelled ctx goes unnoticed.
func (s *CommandServer) Run(ctx context.Context) error {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultCommandEndpoint
	}
	socket, err := zmq4.NewSocket(zmq4.REP)
	if err != nil {
		return fmt.Errorf("command socket: %w", err)
	}
	defer socket.Close()
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		return fmt.Errorf("command socket: %w", err)
	}
	if err := socket.Bind(endpoint); err != nil {
		return fmt.Errorf("bind %s: %w", endpoint, err)
	}
	log.Printf("command server listening on %s", endpoint)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := socket.Recv(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue
			}
			if zmq4.AsErrno(err) == zmq4.ETERM {
				return fmt.Errorf("command recv: %w", err)
			}
			log.Printf("command recv error: %v", err)
			continue
		}

		cmd, reply := ParseCommand(msg, s.IsCamera)
		if _, err := socket.Send(reply, 0); err != nil {
			log.Printf("command reply error: %v", err)
		}
		if cmd.Kind == KindUnknown || cmd.Kind == KindHello {
			continue
		}
		if s.Handle != nil {
			s.Handle(cmd)
		}
	}
}
