package granola

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"followup/internal/content"
	"followup/internal/services"
)

const (
	serviceName      = "granola"
	panelsPath       = "/v1/get-document-panels"
	transcriptPath   = "/v1/get-document-transcript"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20
	userAgent        = "followup/1.0"
)

// Client fetches meeting content from the notes API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A zero timeout uses 30 seconds.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// FetchPanels returns the note panels for meetingID.
func (c *Client) FetchPanels(ctx context.Context, meetingID, token string) ([]content.Panel, error) {
	body, err := c.post(ctx, panelsPath, token, map[string]string{"document_id": meetingID})
	if err != nil {
		return nil, err
	}
	var panels []content.Panel
	if err := json.Unmarshal(body, &panels); err != nil {
		return nil, services.Wrap(services.ErrMalformed, serviceName, "fetch panels", "decode response", err)
	}
	return panels, nil
}

type transcriptSegmentWire struct {
	Text           string `json:"text"`
	Source         string `json:"source"`
	StartTimestamp string `json:"start_timestamp"`
}

// FetchTranscript returns the raw transcript segments for meetingID.
func (c *Client) FetchTranscript(ctx context.Context, meetingID, token string) ([]content.TranscriptSegment, error) {
	body, err := c.post(ctx, transcriptPath, token, map[string]string{"document_id": meetingID})
	if err != nil {
		return nil, err
	}
	var wire []transcriptSegmentWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, services.Wrap(services.ErrMalformed, serviceName, "fetch transcript", "decode response", err)
	}
	segments := make([]content.TranscriptSegment, 0, len(wire))
	for _, seg := range wire {
		out := content.TranscriptSegment{Text: seg.Text, Source: seg.Source}
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(seg.StartTimestamp)); err == nil {
			out.Start = ts.UTC()
		}
		segments = append(segments, out)
	}
	return segments, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload any) ([]byte, error) {
	operation := strings.TrimPrefix(path, "/v1/")
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, operation, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, operation, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, serviceName, operation, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, serviceName, operation, "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.StatusMarker(resp.StatusCode), serviceName, operation,
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(body)), nil)
	}
	return body, nil
}

// readBody reads a response and inflates it when it carries the gzip magic
// bytes. Go's transport only decompresses when it added the header itself.
func readBody(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip body: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxResponseBytes))
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
