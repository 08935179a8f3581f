package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("key"); got != "secret" {
			t.Errorf("key = %q, want secret", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "face.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Write([]byte(`{"data":{"url":"https://host/x/face.png"},"success":true,"status":200}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", zerolog.Nop())
	url, err := c.Upload(context.Background(), "face.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if url != "https://host/x/face.png" {
		t.Fatalf("url = %q", url)
	}
}

func TestUploadHostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", zerolog.Nop())
	if _, err := c.Upload(context.Background(), "face.png", []byte("x")); err == nil {
		t.Fatal("expected error on host rejection")
	}
}

func TestUploadRequiresKey(t *testing.T) {
	c := New("http://unused", "", zerolog.Nop())
	if _, err := c.Upload(context.Background(), "a.png", []byte("x")); err == nil {
		t.Fatal("expected error without api key")
	}
}
