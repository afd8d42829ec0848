package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/benshep/imageViewer2/internal/camera"
	"github.com/benshep/imageViewer2/internal/ingest"
)

func main() {
	var (
		commandEndpoint = flag.String("command", "tcp://localhost:5559", "Command endpoint (REQ)")
		subEndpoint     = flag.String("sub", "tcp://localhost:5556", "Publish endpoint (SUB)")
		send            = flag.String("send", "", "Command to send: a camera name, IN, OUT, LIVE, PAUSE or HELLO")
		listen          = flag.Int("listen", 0, "Number of published updates to print")
		timeout         = flag.Duration("timeout", 5*time.Second, "Reply and receive timeout")
		pushEndpoint    = flag.String("push", "", "Bind a PUSH socket here and stream frames from -replay-dir")
		replayDir       = flag.String("replay-dir", "", "Folder of PNG frames to stream with -push")
		pushInterval    = flag.Duration("push-interval", 100*time.Millisecond, "Interval between pushed frames")
		pushCount       = flag.Int("push-count", 0, "Frames to push (0 loops forever)")
	)
	flag.Parse()

	if *send == "" && *listen == 0 && *pushEndpoint == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *send != "" {
		reply, err := request(*commandEndpoint, *send, *timeout)
		if err != nil {
			log.Fatalf("command: %v", err)
		}
		fmt.Println(reply)
	}
	if *listen > 0 {
		if err := subscribe(*subEndpoint, *listen, *timeout); err != nil {
			log.Fatalf("subscribe: %v", err)
		}
	}
	if *pushEndpoint != "" {
		if err := push(*pushEndpoint, *replayDir, *pushInterval, *pushCount); err != nil {
			log.Fatalf("push: %v", err)
		}
	}
}

func request(endpoint, msg string, timeout time.Duration) (string, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return "", err
	}
	defer socket.Close()
	if err := socket.SetRcvtimeo(timeout); err != nil {
		return "", err
	}
	if err := socket.SetLinger(0); err != nil {
		return "", err
	}
	if err := socket.Connect(endpoint); err != nil {
		return "", err
	}
	if _, err := socket.Send(msg, 0); err != nil {
		return "", err
	}
	return socket.Recv(0)
}

// subscribe prints published updates. CONFLATE keeps only the newest one, so
// a slow reader always sees the latest position.
func subscribe(endpoint string, n int, timeout time.Duration) error {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	defer socket.Close()
	if err := socket.SetConflate(true); err != nil {
		return err
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		return err
	}
	if err := socket.Connect(endpoint); err != nil {
		return err
	}
	if err := socket.SetSubscribe(""); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		msg, err := socket.RecvBytes(0)
		if err != nil {
			return err
		}
		var decoded map[string]any
		if err := cbor.Unmarshal(msg, &decoded); err != nil {
			log.Printf("decode update: %v", err)
			continue
		}
		fmt.Println(decoded)
	}
	return nil
}

// push streams PNG frames in the wire format the zmq frame source reads.
func push(endpoint, dir string, interval time.Duration, count int) error {
	replay, err := camera.NewReplay(dir, 0, false)
	if err != nil {
		return err
	}
	defer replay.Close()

	socket, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		return err
	}
	defer socket.Close()
	if err := socket.Bind(endpoint); err != nil {
		return err
	}
	log.Printf("pushing frames from %s on %s", dir, endpoint)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for seq := uint64(1); count == 0 || seq <= uint64(count); seq++ {
		frame, err := replay.Acquire(context.Background(), time.Second)
		if err != nil {
			return err
		}
		frame.Seq = seq
		frame.Time = time.Now()
		msg, err := ingest.EncodeFrame(frame)
		if err != nil {
			return err
		}
		if _, err := socket.SendBytes(msg, 0); err != nil {
			return err
		}
		<-ticker.C
	}
	return nil
}
