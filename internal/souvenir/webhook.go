package souvenir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	EncodingMultipart = "multipart"
	EncodingJSON      = "json"

	// acceptedMessage is the body an n8n-style workflow webhook returns when
	// it queues the job instead of producing a result synchronously.
	acceptedMessage = "Workflow was started"

	maxResponseBytes = 1 << 20
)

// WebhookConfig configures the generation-service exchange. The credential,
// when the concrete service needs one, arrives here from configuration and
// is sent as a bearer token.
type WebhookConfig struct {
	URL         string
	Encoding    string
	BearerToken string
	// Timeout bounds the exchange; zero leaves it to the underlying
	// transport.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// WebhookTransport submits the souvenir payload to an external workflow
// webhook in a single POST. No retries, no backoff.
type WebhookTransport struct {
	url      string
	encoding string
	token    string
	client   *http.Client
}

func NewWebhookTransport(c WebhookConfig) (*WebhookTransport, error) {
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return nil, fmt.Errorf("souvenir: webhook URL is required")
	}

	encoding := strings.TrimSpace(c.Encoding)
	if encoding == "" {
		encoding = EncodingMultipart
	}
	if encoding != EncodingMultipart && encoding != EncodingJSON {
		return nil, fmt.Errorf("souvenir: unknown webhook encoding %q", encoding)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	return &WebhookTransport{
		url:      url,
		encoding: encoding,
		token:    strings.TrimSpace(c.BearerToken),
		client:   client,
	}, nil
}

func (t *WebhookTransport) Submit(ctx context.Context, p Payload) (*Outcome, error) {
	body, contentType, err := t.encode(p)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("generation service: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("generation service returned %s", resp.Status)
	}

	var parsed struct {
		ImageURL string `json:"image_url"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("generation service: unrecognized response body")
	}

	switch {
	case parsed.ImageURL != "":
		return &Outcome{ImageURL: parsed.ImageURL}, nil
	case parsed.Message == acceptedMessage:
		return &Outcome{Accepted: true}, nil
	default:
		return nil, fmt.Errorf("generation service: unrecognized response body")
	}
}

func (t *WebhookTransport) encode(p Payload) (io.Reader, string, error) {
	if t.encoding == EncodingJSON {
		return encodeJSON(p)
	}
	return encodeMultipart(p)
}

func encodeMultipart(p Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name, value string
	}{
		{"status", "success"},
		{"user_name", p.Name},
		{"age", p.Age},
		{"email", p.Email},
		{"phone", p.Phone},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	optional := []struct {
		name, value string
	}{
		{"photo_base64", p.PhotoDataURI},
		{"style", p.Style},
		{"monument", p.Monument},
	}
	for _, f := range optional {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if p.IncludeLogo != nil {
		if err := w.WriteField("include_logo", strconv.FormatBool(*p.IncludeLogo)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func encodeJSON(p Payload) (io.Reader, string, error) {
	body := map[string]any{
		"name":  p.Name,
		"age":   p.Age,
		"email": p.Email,
		"phone": p.Phone,
	}
	if p.PhotoDataURI != "" {
		body["photo_base64"] = p.PhotoDataURI
	}
	if p.Style != "" {
		body["style"] = p.Style
	}
	if p.Monument != "" {
		body["monument"] = p.Monument
	}
	if p.IncludeLogo != nil {
		body["include_logo"] = *p.IncludeLogo
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}

	return bytes.NewReader(raw), "application/json", nil
}
