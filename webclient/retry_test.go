package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoWithRetry(t *testing.T) {
	t.Run("retries transient status", func(t *testing.T) {
		calls := 0
		status, body, err := DoWithRetry(context.Background(), 3, time.Millisecond, func() (int, []byte, error) {
			calls++
			if calls < 3 {
				return http.StatusServiceUnavailable, nil, nil
			}
			return http.StatusOK, []byte("ok"), nil
		})
		if err != nil || status != http.StatusOK || string(body) != "ok" {
			t.Fatalf("got (%d, %q, %v)", status, body, err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		calls := 0
		status, _, err := DoWithRetry(context.Background(), 3, time.Millisecond, func() (int, []byte, error) {
			calls++
			return http.StatusBadRequest, nil, nil
		})
		if err != nil || status != http.StatusBadRequest || calls != 1 {
			t.Fatalf("got status %d err %v after %d calls", status, err, calls)
		}
	})

	t.Run("returns last error", func(t *testing.T) {
		wantErr := errors.New("dial tcp: connection refused")
		_, _, err := DoWithRetry(context.Background(), 2, time.Millisecond, func() (int, []byte, error) {
			return 0, nil, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, _, err := DoWithRetry(ctx, 5, time.Hour, func() (int, []byte, error) {
			calls++
			cancel()
			return http.StatusBadGateway, nil, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	status, body, err := Do(NewDefault(time.Second), req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if status != http.StatusAccepted || string(body) != `{"ok":true}` {
		t.Errorf("got (%d, %q)", status, body)
	}
}
