package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"soph-gateway/internal/config"
	"soph-gateway/internal/domain"
)

// doneLine terminates an upstream stream.
const doneLine = "data: [DONE]"

// Proxy forwards validated chat requests to the LLM gateway and relays
// the event stream back to the client.
type Proxy struct {
	cfg    config.ChatConfig
	client *http.Client
	logger *slog.Logger
}

// NewProxy creates the proxy. The upstream client has no overall timeout
// because streams are long-lived; cancellation rides the request context.
func NewProxy(cfg config.ChatConfig, logger *slog.Logger) *Proxy {
	return &Proxy{cfg: cfg, client: &http.Client{}, logger: logger}
}

type upstreamRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// Open validates the request, calls the upstream gateway and returns the
// response stream. Upstream refusals map to typed errors: 429 becomes
// RateLimitedError, 402 CreditsExhaustedError, anything else
// UpstreamError. Upstream error bodies are logged and never returned.
func (p *Proxy) Open(ctx context.Context, req domain.ChatRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if p.cfg.APIKey == "" {
		p.logger.Error("chat backend api key not configured")
		return nil, &domain.UpstreamError{Message: "Erro ao conectar com a IA"}
	}

	body, err := json.Marshal(upstreamRequest{
		Model:    p.cfg.Model,
		Messages: buildMessages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, &domain.UpstreamError{Message: "Erro ao conectar com a IA"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BackendURL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.UpstreamError{Message: "Erro ao conectar com a IA"}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Warn("chat upstream unreachable", "error", err)
		return nil, &domain.UpstreamError{Message: "Erro ao conectar com a IA"}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		drainAndClose(resp.Body)
		return nil, &domain.RateLimitedError{}
	case resp.StatusCode == http.StatusPaymentRequired:
		drainAndClose(resp.Body)
		return nil, &domain.CreditsExhaustedError{}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		p.logger.Error("chat upstream error", "status", resp.StatusCode, "body", string(detail))
		return nil, &domain.UpstreamError{Message: "Erro ao conectar com a IA"}
	}
}

// Relay copies the upstream event stream to dst line by line. Chunks may
// split an event mid-line; incomplete trailing lines are buffered until
// the rest arrives. The stream ends at the [DONE] sentinel or upstream
// EOF, whichever comes first. Each completed line is flushed immediately.
func (p *Proxy) Relay(ctx context.Context, dst io.Writer, src io.Reader) error {
	flusher, _ := dst.(http.Flusher)
	reader := bufio.NewReader(src)

	var partial strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			if !strings.HasSuffix(chunk, "\n") {
				partial.WriteString(chunk)
			} else {
				line := partial.String() + strings.TrimSuffix(chunk, "\n")
				partial.Reset()
				if relayErr := writeLine(dst, flusher, line); relayErr != nil {
					return relayErr
				}
				if strings.TrimSpace(line) == doneLine {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if partial.Len() > 0 {
					return writeLine(dst, flusher, partial.String())
				}
				return nil
			}
			p.logger.Warn("chat stream interrupted", "error", err)
			return err
		}
	}
}

func writeLine(dst io.Writer, flusher http.Flusher, line string) error {
	if _, err := io.WriteString(dst, line+"\n"); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
