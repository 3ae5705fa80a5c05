// Package storage keeps issue photos and hands out public URLs for them.
// Objects live under a namespace prefix: citizen submissions in before/,
// resolution evidence in after/.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type Namespace string

const (
	Before Namespace = "before"
	After  Namespace = "after"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys outside the known namespaces or with
// path traversal.
var ErrInvalidKey = errors.New("storage: invalid key")

// mediaPath is the route prefix under which objects are served.
const mediaPath = "/media/"

// NewKey builds a collision-resistant object key from the current time and
// a random suffix. Client file names never take part in it.
func NewKey(ns Namespace, contentType string, now time.Time) string {
	ext := ".bin"
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%s/%d-%s%s", ns, now.UnixMilli(), suffix, ext)
}

// ValidateKey rejects keys a client could use to escape the namespaces.
func ValidateKey(key string) error {
	ns, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	switch Namespace(ns) {
	case Before, After:
		return nil
	}
	return ErrInvalidKey
}

// PublicURL returns the URL an object is served from.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + mediaPath + key
}

// KeyFromURL is the inverse of PublicURL.
func KeyFromURL(baseURL, url string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + mediaPath
	key, ok := strings.CutPrefix(url, prefix)
	if !ok {
		return "", ErrInvalidKey
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
