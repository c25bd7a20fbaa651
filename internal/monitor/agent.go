package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
)

// Fetcher retrieves a host's current stat payload.
type Fetcher interface {
	Fetch(ctx context.Context, h host.Host) (*StatPayload, error)
}

// agentResponse is the agent's envelope.
type agentResponse struct {
	Success bool         `json:"success"`
	Data    *StatPayload `json:"data"`
	Msg     string       `json:"msg"`
}

// maxAgentBody caps how much of an agent response is read.
const maxAgentBody = 4 << 20

// AgentClient fetches /stat over HTTP. Deadlines come from the caller's
// context.
type AgentClient struct {
	client *http.Client
}

// NewAgentClient creates an AgentClient. A nil client uses a fresh
// http.Client with no overall timeout.
func NewAgentClient(client *http.Client) *AgentClient {
	if client == nil {
		client = &http.Client{}
	}
	return &AgentClient{client: client}
}

// Fetch implements Fetcher.
func (a *AgentClient) Fetch(ctx context.Context, h host.Host) (*StatPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.AgentURL(), nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAgent, "Invalid agent endpoint for "+h.Name, "")
	}
	req.Header.Set("key", h.API.Key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAgent, "Agent unreachable on "+h.Name, "")
	}
	defer resp.Body.Close()

	var body agentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAgentBody)).Decode(&body); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAgent,
			fmt.Sprintf("Unreadable agent response from %s (HTTP %d)", h.Name, resp.StatusCode), "")
	}
	if !body.Success || body.Data == nil {
		msg := body.Msg
		if msg == "" {
			msg = "no data"
		}
		return nil, errors.New(errors.ErrAgent, fmt.Sprintf("Agent on %s reported failure: %s", h.Name, msg),
			"Check that the API key in the host registry matches the agent config")
	}
	return body.Data, nil
}
