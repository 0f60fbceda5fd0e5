package mcpgateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

// Custom routes share the mux with an endpoint serving real upstream tools,
// whether they are added before or after the server starts.
func TestServeMuxRoutesAlongsideTools(t *testing.T) {
	t.Parallel()

	result := upstreamResult(t)
	gateway, err := NewGateway(result, &Options{Path: "tools", Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, "/tools", gateway.Options().Path)

	gateway.ServeMux().HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(gateway.Handler())
	t.Cleanup(srv.Close)

	gateway.ServeMux().HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if len(result.Tools) == 0 {
			http.Error(w, "no tools", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})

	status, body := getBody(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = getBody(t, srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, endpoint := range []string{srv.URL + "/tools", srv.URL + "/tools/"} {
		client := mcp.NewClient(&mcp.Implementation{Name: "downstream", Version: "1.0.0"}, nil)
		session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
		require.NoError(t, err, endpoint)

		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "fr__greet",
			Arguments: map[string]any{"name": "Marie"},
		})
		require.NoError(t, err, endpoint)
		require.False(t, res.IsError)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Equal(t, "bonjour, Marie", text.Text)
		require.NoError(t, session.Close())
	}
}
