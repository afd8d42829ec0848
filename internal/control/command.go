// Package control serves the ZMQ command channel and publishes screen and
// beam position updates.
package control

import "fmt"

type Kind int

const (
	KindUnknown Kind = iota
	KindCamera
	KindIn
	KindOut
	KindLive
	KindPause
	KindHello
)

func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindIn:
		return "in"
	case KindOut:
		return "out"
	case KindLive:
		return "live"
	case KindPause:
		return "pause"
	case KindHello:
		return "hello"
	default:
		return "unknown"
	}
}

// Command is one parsed request from the command channel.
type Command struct {
	Kind   Kind
	Camera string
}

// ParseCommand maps a request to a command and the reply to send back.
// Recognised requests are echoed; anything else is rejected by name.
func ParseCommand(msg string, isCamera func(string) bool) (Command, string) {
	switch msg {
	case "IN":
		return Command{Kind: KindIn}, msg
	case "OUT":
		return Command{Kind: KindOut}, msg
	case "LIVE":
		return Command{Kind: KindLive}, msg
	case "PAUSE":
		return Command{Kind: KindPause}, msg
	case "HELLO":
		return Command{Kind: KindHello}, msg
	}
	if isCamera != nil && isCamera(msg) {
		return Command{Kind: KindCamera, Camera: msg}, msg
	}
	return Command{Kind: KindUnknown}, fmt.Sprintf("Camera %s not recognised", msg)
}
