// Package openai adapts an OpenAI-compatible API to the embedding and
// generation contracts.
package openai

import openai "github.com/sashabaranov/go-openai"

// ClientConfig holds the connection settings shared by the embedder and generator.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewClient builds a go-openai client. go-openai never retries, so every
// failure surfaces to the caller on the first attempt. The HTTP client has
// no overall timeout because it would cut long answer streams; single-shot
// calls bound themselves with a context deadline instead.
func NewClient(cfg ClientConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
