package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Both travel data providers (the 12306-style rail source and the
// Variflight-style flight source) expose their tools over the same
// JSON-RPC-over-HTTP protocol, so they share one client.

type MCPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMCPClient builds a tool client for one provider endpoint. A nil
// httpClient gets a default with the provider-call timeout.
func NewMCPClient(baseURL string, httpClient *http.Client) *MCPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	return &MCPClient{baseURL: baseURL, httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

type rpcContent struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// CallTool invokes one named provider tool and returns the tool result as
// raw JSON. All failures come back as a *ProviderError in the common shape.
func (c *MCPClient) CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, *ProviderError) {
	if c.baseURL == "" {
		return nil, &ProviderError{Kind: ErrInvalidInput, Message: "provider base URL not configured"}
	}

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  "tools/call",
		Params:  map[string]any{"name": name, "arguments": arguments},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Kind: ErrUnknown, Message: "encode request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Kind: ErrUnknown, Message: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: ErrNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &ProviderError{
			Kind:       ErrHTTP,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			RawBody:    truncate(string(respBody), 2000),
		}
	}

	var env rpcEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		// Streaming endpoints frame the same JSON inside SSE "data:" lines.
		sse, ok := parseSSEJSON(string(respBody))
		if !ok {
			return nil, &ProviderError{
				Kind:    ErrParse,
				Message: "unparsable provider response",
				RawBody: truncate(string(respBody), 2000),
			}
		}
		env = sse
	}

	if len(env.Error) > 0 && string(env.Error) != "null" {
		return nil, &ProviderError{
			Kind:    ErrHTTP,
			Message: "provider error: " + truncate(string(env.Error), 500),
		}
	}

	return extractToolResult(env.Result), nil
}

// parseSSEJSON scans SSE framing for the first data: line carrying JSON.
func parseSSEJSON(text string) (rpcEnvelope, bool) {
	if !strings.Contains(text, "data:") {
		return rpcEnvelope{}, false
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if raw == "" {
			continue
		}
		var env rpcEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return rpcEnvelope{}, false
		}
		return env, true
	}
	return rpcEnvelope{}, false
}

// extractToolResult unwraps the tool-call convention of returning the real
// payload as JSON text inside result.content[0].text. When the convention
// isn't used the raw result is returned as-is.
func extractToolResult(result json.RawMessage) json.RawMessage {
	if len(result) == 0 {
		return result
	}
	var rc rpcContent
	if err := json.Unmarshal(result, &rc); err == nil && len(rc.Content) > 0 && rc.Content[0].Text != "" {
		text := rc.Content[0].Text
		if json.Valid([]byte(text)) {
			return json.RawMessage(text)
		}
		// Plain text payload: re-wrap as a JSON string so callers can
		// always unmarshal.
		quoted, _ := json.Marshal(text)
		return quoted
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…(truncated)"
}
