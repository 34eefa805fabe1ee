package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAI synthesizes speech via the OpenAI audio API. A custom base URL is
// honored for proxy or compatible-provider setups.
type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	voice      string
	httpClient *http.Client
}

// OpenAIOptions configures an OpenAI synthesizer.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Voice      string
	HTTPClient *http.Client
}

// NewOpenAI creates an OpenAI-backed Synthesizer.
func NewOpenAI(opts OpenAIOptions) *OpenAI {
	o := &OpenAI{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		voice:      opts.Voice,
		httpClient: opts.HTTPClient,
	}
	if o.baseURL == "" {
		o.baseURL = "https://api.openai.com/v1"
	}
	if o.model == "" {
		o.model = "tts-1"
	}
	if o.voice == "" {
		o.voice = "alloy"
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// Synthesize renders the exact text to MP3 bytes with a single API call.
func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{Model: o.model, Voice: o.voice, Input: text})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tts: speech request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}
	return data, nil
}
