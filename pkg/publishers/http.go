package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	typ     string
	newID   func() string
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, _ Deps) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, configErr("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		RetryCount: cfg.HTTP.RetryCount,
	})

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  client,
		newID:   uuid.NewString,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish posts the event as JSON. The receipt id is the "id" field of a
// JSON response, or a generated id when the sink does not return one.
func (h *httpPublisher) Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error) {
	req := h.client.R().
		SetContext(ctx).
		SetBody(NewEvent(p))

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		return domain.Receipt{}, fmt.Errorf("http response status %d: %s", resp.StatusCode(), snippet)
	}

	var body struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if id := rawID(body.ID); id != "" {
			return domain.Receipt{ID: id}, nil
		}
	}
	return domain.Receipt{ID: h.newID()}, nil
}

// rawID accepts string or numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
