package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

const testBase = "http://media.test"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

func TestNewKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	a := NewKey(Before, "image/jpeg", now)
	b := NewKey(Before, "image/jpeg", now)
	if a == b {
		t.Fatalf("keys collide: %s", a)
	}
	if !strings.HasPrefix(a, "before/1700000000123-") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("key = %s", a)
	}
	if err := ValidateKey(a); err != nil {
		t.Errorf("ValidateKey(%s): %v", a, err)
	}
	if k := NewKey(After, "application/x-unknown", now); !strings.HasSuffix(k, ".bin") {
		t.Errorf("unknown type key = %s", k)
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "before", "before/", "other/x.png", "before/../x", "before/a/b.png", "../before/x.png"} {
		if err := ValidateKey(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestKeyFromURL(t *testing.T) {
	url := PublicURL(testBase+"/", "after/1-abc.png")
	if url != "http://media.test/media/after/1-abc.png" {
		t.Fatalf("PublicURL = %s", url)
	}
	key, err := KeyFromURL(testBase, url)
	if err != nil || key != "after/1-abc.png" {
		t.Fatalf("KeyFromURL = (%q, %v)", key, err)
	}
	if _, err := KeyFromURL(testBase, "https://elsewhere/media/after/1.png"); err == nil {
		t.Error("foreign URL accepted")
	}
}

func TestDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewDisk(t.TempDir(), testBase)

	url, err := s.Store(ctx, Before, pngBytes, "image/png")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(url, testBase+"/media/before/") {
		t.Fatalf("url = %s", url)
	}

	key, _ := KeyFromURL(testBase, url)
	rc, contentType, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != string(pngBytes) {
		t.Error("stored bytes differ")
	}
	if contentType != "image/png" {
		t.Errorf("content type = %s", contentType)
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, url); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestDiskCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDisk(t.TempDir(), testBase).Store(ctx, Before, pngBytes, "image/png"); err == nil {
		t.Fatal("Store succeeded on cancelled context")
	}
}
