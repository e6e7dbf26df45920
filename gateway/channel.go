package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Josh050608/orim-convert/protocol"
)

// Channel is the synchronous request/response path to the engine. A Channel
// is not required to tolerate concurrent calls; the Gateway guarantees at
// most one call is in flight.
type Channel interface {
	Call(ctx context.Context, req *protocol.InvRequest) (*protocol.InvResponse, error)
}

// HTTPChannel reaches an engine over its HTTP API.
type HTTPChannel struct {
	endpoint string
	client   *http.Client
}

// NewHTTPChannel creates a channel to the engine at endpoint (scheme and
// host, no path). The timeout caps a full round trip including connection
// setup.
func NewHTTPChannel(endpoint string, timeout time.Duration) *HTTPChannel {
	return &HTTPChannel{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Call submits one request and decodes the engine's answer.
func (c *HTTPChannel) Call(ctx context.Context, req *protocol.InvRequest) (*protocol.InvResponse, error) {
	body, err := protocol.SerializeMessage(req)
	if err != nil {
		return nil, fmt.Errorf("serializing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/api/v1/inv", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned HTTP %d", resp.StatusCode)
	}
	return protocol.DecodeMessage[protocol.InvResponse](resp.Body)
}
