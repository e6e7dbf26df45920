// Command enqueue submits a secret message to a running engine's outgoing
// queue. With --announce the argument is treated as a content identifier and
// packed into an announcement frame instead of a plain text message.
//
// # Usage
//
//	go run ./cmd/enqueue --engine http://127.0.0.1:8577 "meet at dawn"
//	go run ./cmd/enqueue --announce QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG
package main

import (
	"bytes"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Josh050608/orim-convert/protocol"
)

func main() {
	var (
		engineURL = flag.String("engine", "http://127.0.0.1:8577", "Engine base URL")
		announce  = flag.Bool("announce", false, "Submit a content announcement instead of a text message")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Error: message argument required")
		os.Exit(1)
	}
	message := strings.Join(flag.Args(), " ")

	path := "/api/v1/messages"
	if *announce {
		path = "/api/v1/announce"
	}

	body, _ := protocol.SerializeMessage(&protocol.EnqueueRequest{Message: message})
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(*engineURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Engine returned HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	ack, err := protocol.DecodeMessage[protocol.EnqueueResponse](resp.Body)
	if err != nil {
		fmt.Printf("Response error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Queued message %d (%d bits)\n", ack.ID, ack.Bits)
}
