// Package anki is a thin client for the AnkiConnect JSON RPC channel. Every
// call goes through one retrying primitive; errors cross the package boundary
// as a closed set of variants, never as raw response blobs.
package anki

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// apiVersion is the AnkiConnect protocol version this client speaks.
const apiVersion = 6

// Client talks to a running AnkiConnect endpoint.
type Client struct {
	url        string
	deck       string
	model      string
	retries    int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures a Client. Zero values fall back to the defaults the
// sync core assumes: 2 retries, 500ms base delay.
type Options struct {
	URL        string
	Deck       string
	Model      string
	Retries    int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a Client for the given endpoint and deck scope.
func NewClient(opts Options) *Client {
	c := &Client{
		url:        opts.URL,
		deck:       opts.Deck,
		model:      opts.Model,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 500 * time.Millisecond
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke performs a single request/response round trip. The envelope's error
// field signals failure regardless of transport status.
func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("anki: encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("anki: %s: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &MalformedResponseError{Action: action, Cause: err}
	}
	if envelope.Error != nil {
		return classify(action, *envelope.Error)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &MalformedResponseError{Action: action, Cause: err}
		}
	}
	return nil
}

// call is the consolidated retrying primitive. Transport failures and
// store-internal errors are retried with exponential backoff; duplicate and
// malformed-response errors are surfaced immediately. An empty result is
// success, not a failure. After the attempts are exhausted the last error is
// returned unchanged.
func (c *Client) call(ctx context.Context, action string, params any, out any) error {
	var last error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying anki call", "action", action, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		last = c.invoke(ctx, action, params, out)
		if last == nil {
			return nil
		}
		if errors.Is(last, ErrDuplicateNote) {
			return last
		}
		var malformed *MalformedResponseError
		if errors.As(last, &malformed) {
			return last
		}
	}
	return last
}

// CardInfo is the review state of one card, read-only from this system's
// perspective.
type CardInfo struct {
	CardID   int64 `json:"cardId"`
	NoteID   int64 `json:"note"`
	Reps     int   `json:"reps"`
	Lapses   int   `json:"lapses"`
	Interval int   `json:"interval"`
	Due      int64 `json:"due"`
}

// NoteInfo carries the field values and tags of one note.
type NoteInfo struct {
	NoteID int64                `json:"noteId"`
	Tags   []string             `json:"tags"`
	Fields map[string]NoteField `json:"fields"`
}

// NoteField is one field value within a note.
type NoteField struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// Field returns the named field's value, or "" when absent.
func (n NoteInfo) Field(name string) string {
	return n.Fields[name].Value
}

// FindCards returns the ids of all cards matching the query within the
// configured deck. Zero matches is success.
func (c *Client) FindCards(ctx context.Context) ([]int64, error) {
	params := map[string]any{"query": fmt.Sprintf("deck:%q", c.deck)}
	var ids []int64
	if err := c.call(ctx, "findCards", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CardsInfo fetches review statistics for the given card ids.
func (c *Client) CardsInfo(ctx context.Context, ids []int64) ([]CardInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var infos []CardInfo
	if err := c.call(ctx, "cardsInfo", map[string]any{"cards": ids}, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// NotesInfo fetches field values and tags for the given note ids.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var infos []NoteInfo
	if err := c.call(ctx, "notesInfo", map[string]any{"notes": ids}, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// AddNote creates a note in the configured deck and model. Duplicate
// detection is delegated entirely to the store; an equivalent existing note
// surfaces as ErrDuplicateNote.
func (c *Client) AddNote(ctx context.Context, fields map[string]string, tags []string) (int64, error) {
	if tags == nil {
		tags = []string{}
	}
	params := map[string]any{
		"note": map[string]any{
			"deckName":  c.deck,
			"modelName": c.model,
			"fields":    fields,
			"tags":      tags,
			"options":   map[string]any{"allowDuplicate": false, "duplicateScope": "deck"},
		},
	}
	var noteID int64
	if err := c.call(ctx, "addNote", params, &noteID); err != nil {
		return 0, err
	}
	return noteID, nil
}

// StoreMediaFile uploads a media blob into the store's media collection.
func (c *Client) StoreMediaFile(ctx context.Context, filename string, data []byte) error {
	params := map[string]any{
		"filename": filename,
		"data":     base64.StdEncoding.EncodeToString(data),
	}
	return c.call(ctx, "storeMediaFile", params, nil)
}

// MediaFileNames lists every filename in the store's media collection.
func (c *Client) MediaFileNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.call(ctx, "getMediaFilesNames", map[string]any{"pattern": "*"}, &names); err != nil {
		return nil, err
	}
	return names, nil
}
