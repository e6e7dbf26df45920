package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Josh050608/orim-convert/protocol"
	"github.com/Josh050608/orim-convert/testutil"
)

func newTestServer(t *testing.T) (*Engine, *httptest.Server) {
	t.Helper()
	engine := newTestEngine(t)
	router := chi.NewRouter()
	NewHandler(engine, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return engine, srv
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestInvEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	hashes := testutil.Hashes(5, 1)
	resp := postJSON(t, srv.URL+"/api/v1/inv", sendRequest(hashes))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inv, err := protocol.DecodeMessage[protocol.InvResponse](resp.Body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, inv.Status)
	require.Equal(t, sortedCopy(hashes), sortedCopy(inv.ReorderedHashes))
}

func TestInvEndpointRejectsBadJSON(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/inv", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	inv, err := protocol.DecodeMessage[protocol.InvResponse](resp.Body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusError, inv.Status)
}

// Protocol-level failures come back as status "error" inside an HTTP 200:
// the transport worked, the operation did not.
func TestInvEndpointReportsProtocolErrors(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/inv", &protocol.InvRequest{
		Direction: protocol.DirectionSend,
		Hashes:    []string{"zz", "00"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inv, err := protocol.DecodeMessage[protocol.InvResponse](resp.Body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusError, inv.Status)
	require.NotEmpty(t, inv.Error)
}

func TestEnqueueAndQueueEndpoints(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/messages", &protocol.EnqueueRequest{Message: "Hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ack, err := protocol.DecodeMessage[protocol.EnqueueResponse](resp.Body)
	require.NoError(t, err)
	require.Positive(t, ack.ID)
	require.Equal(t, 16, ack.Bits)

	queueResp, err := http.Get(srv.URL + "/api/v1/queue")
	require.NoError(t, err)
	defer queueResp.Body.Close()
	require.Equal(t, http.StatusOK, queueResp.StatusCode)

	var queue []struct {
		ID        int64  `json:"id"`
		Message   string `json:"message"`
		TotalBits int    `json:"total_bits"`
		BitsSent  int    `json:"bits_sent"`
		FullySent bool   `json:"fully_sent"`
	}
	require.NoError(t, json.NewDecoder(queueResp.Body).Decode(&queue))
	require.Len(t, queue, 1)
	require.Equal(t, "Hi", queue[0].Message)
	require.Equal(t, 16, queue[0].TotalBits)
	require.False(t, queue[0].FullySent)
}

func TestEnqueueRejectsEmptyMessage(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/messages", &protocol.EnqueueRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnnounceEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/announce", &protocol.EnqueueRequest{Message: testCID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/announce", &protocol.EnqueueRequest{Message: "not-a-cid"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecodedMessagesEndpoint(t *testing.T) {
	engine, srv := newTestServer(t)

	_, err := engine.Store().SaveDecoded("recovered")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/v1/messages?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []struct {
		ID        int64  `json:"id"`
		Message   string `json:"message"`
		DecodedAt string `json:"decoded_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	require.Equal(t, "recovered", msgs[0].Message)
	require.NotEmpty(t, msgs[0].DecodedAt)
}
