package netx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDownload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotMethod string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			_, _ = w.Write(png)
		}))
		defer ts.Close()

		data, ct, err := Download(context.Background(), ts.Client(), ts.URL+"/redacted/x.png?X-Amz-Signature=abc", 1024)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %q, want GET", gotMethod)
		}
		if !bytes.Equal(data, png) {
			t.Fatalf("body = %q, want %q", data, png)
		}
		if ct != "image/png" {
			t.Fatalf("content type = %q, want image/png", ct)
		}
	})

	t.Run("explicit content type wins", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(png)
		}))
		defer ts.Close()

		_, ct, err := Download(context.Background(), nil, ts.URL, 1024)
		if err != nil || ct != "image/jpeg" {
			t.Fatalf("got %q, %v", ct, err)
		}
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("AccessDenied"))
		}))
		defer ts.Close()

		_, _, err := Download(context.Background(), nil, ts.URL, 1024)
		if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
			t.Fatalf("want error with body, got %v", err)
		}
	})

	t.Run("too large -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(bytes.Repeat([]byte("x"), 100))
		}))
		defer ts.Close()

		if _, _, err := Download(context.Background(), nil, ts.URL, 10); err == nil {
			t.Fatal("want size error")
		}
	})

	t.Run("cancelled context -> error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := Download(ctx, nil, "http://127.0.0.1:1/x", 10); err == nil {
			t.Fatal("want error")
		}
	})
}
