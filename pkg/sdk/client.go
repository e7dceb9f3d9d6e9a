package ragbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragbot/internal/version"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is the ragbot SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	obs       *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ragbot: invalid base url %q", baseURL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	ua := cfg.userAgent
	if ua == "" {
		ua = "ragbot-go/" + version.Version
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		userAgent: ua,
		http:      hc,
		obs:       obs,
	}, nil
}

// Ask sends a question with optional history and returns the answer stream.
// Errors before the first fragment (validation, auth, rate limit, generation)
// come back here as *APIError. The caller must Close the stream.
func (c *Client) Ask(ctx context.Context, question string, history []Turn) (_ *AnswerStream, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	body, err := json.Marshal(chatRequest{Query: question, History: history})
	if err != nil {
		return nil, fmt.Errorf("ragbot: encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}

	return newAnswerStream(resp.Body, metaFromHeaders(resp.Header), func() { c.obs.firstFragment(start) }), nil
}

// Answer asks and collects the whole reply. A stream that breaks after the
// first fragment returns the partial text along with the error.
func (c *Client) Answer(ctx context.Context, question string, history []Turn) (string, error) {
	stream, err := c.Ask(ctx, question, history)
	if err != nil {
		return "", err
	}
	defer func() { _ = stream.Close() }()

	var b strings.Builder
	for {
		frag, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("ragbot: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ragbot: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Code != "" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
		return apiErr
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

func metaFromHeaders(h http.Header) AnswerMeta {
	meta := AnswerMeta{RequestID: h.Get("X-Request-ID")}
	meta.Planned, _ = strconv.ParseBool(h.Get("X-Answer-Planned"))
	if v := h.Get("X-Embedding-Tokens"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			meta.EmbeddingTokens = &n
		}
	}
	return meta
}
