package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/httpx"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/utils"
)

const (
	// MaxUploadBytes is the hard document size ceiling. Enforced before any
	// network call so an oversized file never costs an upload.
	MaxUploadBytes = 20 * 1024 * 1024

	// Files above this threshold go through the chunked resumable protocol.
	resumableThreshold = 10 * 1024 * 1024
	resumableChunkSize = 8 * 1024 * 1024

	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"

	maxAttempts    = 5
	initialBackoff = 3 * time.Second
	maxBackoff     = 30 * time.Second
)

// FileRef identifies an uploaded document on the model provider's side.
type FileRef struct {
	Name     string // resource name, e.g. "files/abc-123"
	URI      string // file URI passed back in generate requests
	MimeType string
	State    string
}

// Client is the generative-model API client used by the extraction pipeline.
type Client interface {
	// UploadFile pushes document bytes to the provider's file store and
	// returns a reference usable in GenerateText. Rejects files over
	// MaxUploadBytes without making a network call.
	UploadFile(ctx context.Context, displayName string, data []byte, mimeType string) (*FileRef, error)

	// GenerateText runs a prompt, optionally grounded on an uploaded file,
	// and returns the model's text output.
	GenerateText(ctx context.Context, prompt string, file *FileRef) (string, error)

	// DeleteFile removes an uploaded file. Best effort: callers ignore the
	// error beyond logging.
	DeleteFile(ctx context.Context, file *FileRef) error

	ModelName() string
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
	// RetryAfter carries the server's Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func (e *geminiHTTPError) HTTPStatusCode() int { return e.StatusCode }

// IsRateLimited reports whether an extraction failure was a quota/rate-limit
// rejection rather than a document problem. Those failures are surfaced to
// the caller as retry-later.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var sc *geminiHTTPError
	if errors.As(err, &sc) && sc.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return httpx.IsRateLimitMessage(err.Error())
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func NewClient(log *logger.Logger) (Client, error) {
	clientLog := log.With("platform", "gemini")
	apiKey := utils.GetEnv("GEMINI_API_KEY", "", clientLog)
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return &client{
		log:     clientLog,
		baseURL: utils.GetEnv("GEMINI_BASE_URL", defaultBaseURL, clientLog),
		apiKey:  apiKey,
		model:   utils.GetEnv("GEMINI_MODEL", defaultModel, clientLog),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		sleep: contextSleep,
	}, nil
}

func (c *client) ModelName() string { return c.model }

func (c *client) UploadFile(ctx context.Context, displayName string, data []byte, mimeType string) (*FileRef, error) {
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("file too large: %d bytes exceeds the %d byte limit", len(data), MaxUploadBytes)
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	var ref *FileRef
	err := c.withRetry(ctx, "files.upload", func() error {
		var uErr error
		if len(data) > resumableThreshold {
			ref, uErr = c.uploadResumable(ctx, displayName, data, mimeType)
		} else {
			ref, uErr = c.uploadSimple(ctx, displayName, data, mimeType)
		}
		return uErr
	})
	if err != nil {
		return nil, err
	}

	return c.waitActive(ctx, ref)
}

type fileMetadata struct {
	File struct {
		Name     string `json:"name"`
		URI      string `json:"uri"`
		MimeType string `json:"mimeType"`
		State    string `json:"state"`
	} `json:"file"`
}

func (c *client) uploadSimple(ctx context.Context, displayName string, data []byte, mimeType string) (*FileRef, error) {
	url := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", displayName)
	req.Header.Set("Content-Type", mimeType)

	raw, err := c.doRead(req)
	if err != nil {
		return nil, err
	}
	return decodeFileRef(raw)
}

// uploadResumable follows the start/upload/finalize protocol so a large
// document does not ride a single long-lived request.
func (c *client) uploadResumable(ctx context.Context, displayName string, data []byte, mimeType string) (*FileRef, error) {
	startURL := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	meta, err := json.Marshal(map[string]any{
		"file": map[string]any{"display_name": displayName},
	})
	if err != nil {
		return nil, err
	}
	startReq, err := http.NewRequestWithContext(ctx, http.MethodPost, startURL, bytes.NewReader(meta))
	if err != nil {
		return nil, err
	}
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	startReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(startReq)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &geminiHTTPError{StatusCode: resp.StatusCode, Body: "resumable upload start rejected"}
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, fmt.Errorf("resumable upload start returned no upload url")
	}

	var raw []byte
	for offset := 0; offset < len(data); offset += resumableChunkSize {
		end := offset + resumableChunkSize
		last := false
		if end >= len(data) {
			end = len(data)
			last = true
		}
		chunkReq, cErr := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data[offset:end]))
		if cErr != nil {
			return nil, cErr
		}
		command := "upload"
		if last {
			command = "upload, finalize"
		}
		chunkReq.Header.Set("X-Goog-Upload-Command", command)
		chunkReq.Header.Set("X-Goog-Upload-Offset", strconv.Itoa(offset))
		chunkReq.Header.Set("Content-Length", strconv.Itoa(end-offset))

		raw, cErr = c.doRead(chunkReq)
		if cErr != nil {
			return nil, cErr
		}
	}
	return decodeFileRef(raw)
}

func decodeFileRef(raw []byte) (*FileRef, error) {
	var meta fileMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if meta.File.URI == "" {
		return nil, fmt.Errorf("upload response missing file uri")
	}
	return &FileRef{
		Name:     meta.File.Name,
		URI:      meta.File.URI,
		MimeType: meta.File.MimeType,
		State:    meta.File.State,
	}, nil
}

// waitActive polls until the uploaded file finishes server-side processing.
// PDFs are usually ACTIVE immediately; larger files can take a few seconds.
func (c *client) waitActive(ctx context.Context, ref *FileRef) (*FileRef, error) {
	deadline := time.Now().Add(60 * time.Second)
	for ref.State == "PROCESSING" {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("file %s stuck in PROCESSING", ref.Name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
		url := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, ref.Name, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		raw, err := c.doRead(req)
		if err != nil {
			return nil, err
		}
		var st struct {
			State string `json:"state"`
			URI   string `json:"uri"`
		}
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, err
		}
		ref.State = st.State
	}
	if ref.State == "FAILED" {
		return nil, fmt.Errorf("file %s failed server-side processing", ref.Name)
	}
	return ref, nil
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generatePart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

func (c *client) GenerateText(ctx context.Context, prompt string, file *FileRef) (string, error) {
	var parts []generatePart
	if file != nil {
		parts = append(parts, generatePart{FileData: &fileData{MimeType: file.MimeType, FileURI: file.URI}})
	}
	parts = append(parts, generatePart{Text: prompt})
	req := generateRequest{Contents: []generateContent{{Parts: parts}}}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var out generateResponse
	err = c.withRetry(ctx, "models.generateContent", func() error {
		url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
		httpReq, rErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if rErr != nil {
			return rErr
		}
		httpReq.Header.Set("Content-Type", "application/json")
		raw, rErr := c.doRead(httpReq)
		if rErr != nil {
			return rErr
		}
		out = generateResponse{}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (c *client) DeleteFile(ctx context.Context, file *FileRef) error {
	if file == nil || file.Name == "" {
		return nil
	}
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, file.Name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	_, err = c.doRead(req)
	return err
}

func (c *client) doRead(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &geminiHTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, maxBackoff),
		}
	}
	return raw, nil
}

// withRetry runs fn up to maxAttempts times, backing off 3s, 6s, 12s, 24s
// (capped at 30s) on transient failures. A Retry-After from the server
// overrides the computed backoff. Non-transient errors return immediately.
func (c *client) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !httpx.IsRetryableError(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		sleepFor := httpx.JitterSleep(backoff)
		var he *geminiHTTPError
		if errors.As(lastErr, &he) && he.RetryAfter > 0 {
			sleepFor = he.RetryAfter
		}
		c.log.Warn("Gemini request retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"sleep", sleepFor.String(),
			"error", lastErr.Error(),
		)
		if sErr := c.sleep(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxAttempts, lastErr)
}
