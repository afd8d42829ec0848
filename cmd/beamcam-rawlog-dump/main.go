package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/benshep/imageViewer2/internal/output"
)

func main() {
	var (
		path    = flag.String("path", "", "Path to raw frame log .bin file")
		limit   = flag.Int("limit", 1, "Number of records to dump (0 for all)")
		extract = flag.String("extract", "", "Write each frame as a PNG into this directory")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}
	defer f.Close()

	reader, err := output.NewRawLogReader(f)
	if err != nil {
		log.Fatalf("open rawlog: %v", err)
	}

	count := 0
	for {
		if *limit > 0 && count >= *limit {
			return
		}
		ts, payload, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Fatalf("read record: %v", err)
		}
		if len(payload) == 0 {
			log.Printf("record %d: empty payload", count)
			continue
		}

		var decoded any
		if err := cbor.Unmarshal(payload, &decoded); err != nil {
			log.Printf("record %d: CBOR decode error: %v", count, err)
			continue
		}

		normalized := output.NormalizeJSONValue(decoded)
		pretty, err := json.MarshalIndent(normalized, "", "  ")
		if err != nil {
			log.Printf("record %d: JSON encode error: %v", count, err)
			continue
		}

		log.Printf("record %d timestamp=%s size=%d", count, ts.Format(time.RFC3339Nano), len(payload))
		fmt.Println(string(pretty))

		if *extract != "" {
			if err := extractFrame(*extract, payload); err != nil {
				log.Printf("record %d: extract failed: %v", count, err)
			}
		}
		count++
	}
}

func extractFrame(dir string, payload []byte) error {
	rec, err := output.DecodeFrameRecord(payload)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s %06d.png", rec.Camera, rec.Seq)
	return output.WriteStill(filepath.Join(dir, name), rec.Frame())
}
