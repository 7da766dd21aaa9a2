package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL  = "https://api.elevenlabs.io"
	DefaultWSURL    = "wss://api.elevenlabs.io/v1/convai/conversation"
	DefaultVoiceID  = "JBFqnCBsd6RMkjVDRZzb"
	DefaultTTSModel = "eleven_multilingual_v2"
	ttsOutputFormat = "mp3_44100_128"
	apiKeyHeader    = "xi-api-key"
)

// APIError carries a non-2xx response from the platform.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, strings.TrimSpace(e.Body))
}

type Config struct {
	APIKey   string
	BaseURL  string
	WSURL    string
	VoiceID  string
	TTSModel string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

// Client talks to the ElevenLabs conversational-AI and text-to-speech APIs.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.WSURL == "" {
		cfg.WSURL = DefaultWSURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultTTSModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, http: hc, log: log}
}

// Document is a knowledge-base entry.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateDocument uploads content as a text file into the knowledge base.
func (c *Client) CreateDocument(ctx context.Context, name, filename string, content []byte) (Document, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Document{}, err
	}
	if _, err := fw.Write(content); err != nil {
		return Document{}, err
	}
	if err := mw.WriteField("name", name); err != nil {
		return Document{}, err
	}
	if err := mw.Close(); err != nil {
		return Document{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/convai/knowledge-base", &body)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var doc Document
	if err := c.doJSON(req, "create knowledge base document", &doc); err != nil {
		return Document{}, err
	}
	c.log.Info().Str("document_id", doc.ID).Str("name", doc.Name).Msg("knowledge base document created")
	return doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("document id is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/convai/knowledge-base/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete knowledge base document", nil)
}

// CreateAgent creates a tutor agent over docs and returns its id.
func (c *Client) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	payload := spec.request(c.cfg.VoiceID)
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/convai/agents/create", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.doJSON(req, "create agent", &out); err != nil {
		return "", err
	}
	c.log.Info().Str("agent_id", out.AgentID).Str("name", payload.Name).Msg("agent created")
	return out.AgentID, nil
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("agent id is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/convai/agents/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete agent", nil)
}

// Speech is a streamed audio response. The caller closes Body.
type Speech struct {
	Body        io.ReadCloser
	ContentType string
}

// Speak synthesizes text with the configured voice.
func (c *Client) Speak(ctx context.Context, text string) (*Speech, error) {
	raw, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": c.cfg.TTSModel,
	})
	if err != nil {
		return nil, err
	}
	path := "/v1/text-to-speech/" + url.PathEscape(c.cfg.VoiceID) + "?output_format=" + ttsOutputFormat
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, readAPIError("text to speech", resp)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return &Speech{Body: resp.Body, ContentType: ct}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	return req, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		err := readAPIError(op, resp)
		c.log.Error().Err(err).Msg("voice platform request failed")
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readAPIError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
}
