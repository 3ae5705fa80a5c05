package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmptyImage = errors.New("image payload is empty")
	ErrBadImage   = errors.New("invalid base64 image data")
	ErrTooLarge   = errors.New("image is too large")
)

// DecodeImage accepts either a data URL ("data:image/png;base64,...") or
// bare base64 and returns the bytes with their sniffed content type. The
// declared type of a data URL is never trusted.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, "", ErrBadImage
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, "", ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients strip the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", ErrBadImage
		}
	}
	return data, DetectContentType(data), nil
}

// ReadUpload reads a multipart file of at most max bytes.
func ReadUpload(fh *multipart.FileHeader, max int64) ([]byte, string, error) {
	if fh.Size > max {
		return nil, "", ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > max {
		return nil, "", ErrTooLarge
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	return data, DetectContentType(data), nil
}

// DetectContentType sniffs data and returns its bare MIME type.
func DetectContentType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
