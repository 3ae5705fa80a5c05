// Package classifier talks to the pothole detection service, which accepts
// one image as multipart field "file" on POST /predict and answers
// {"pothole_detected": bool}.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"urbanconnect-be/webclient"
)

// ErrUnavailable wraps transport failures, timeouts, non-200 responses and
// undecodable bodies. A negative verdict is never reported through it.
var ErrUnavailable = errors.New("classifier: service unavailable")

type Verdict struct {
	PotholeDetected bool `json:"pothole_detected"`
}

type Client struct {
	baseURL    string
	http       *http.Client
	attempts   int
	retryDelay time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       webclient.NewDefault(timeout),
		attempts:   2,
		retryDelay: time.Second,
	}
}

// Classify sends image to the detector.
func (c *Client) Classify(ctx context.Context, image []byte, contentType string) (Verdict, error) {
	payload, boundary, err := encode(image, contentType)
	if err != nil {
		return Verdict{}, err
	}

	status, body, err := webclient.DoWithRetry(ctx, c.attempts, c.retryDelay, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", boundary)
		req.Header.Set("Accept", "application/json")
		return webclient.Do(c.http, req)
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return Verdict{}, fmt.Errorf("%w: predict returned status %d", ErrUnavailable, status)
	}

	var v Verdict
	if err := json.Unmarshal(body, &v); err != nil {
		return Verdict{}, fmt.Errorf("%w: decode verdict: %v", ErrUnavailable, err)
	}
	return v, nil
}

func encode(image []byte, contentType string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
