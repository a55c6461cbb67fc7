package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataURIPublisher(t *testing.T) {
	got, err := DataURIPublisher{}.Publish(context.Background(), "voice.mp3", []byte("mp3"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got != "data:audio/mpeg;base64,bXAz" {
		t.Errorf("Publish() = %q, want data:audio/mpeg;base64,bXAz", got)
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		file        string
		contentType string
		wantPrefix  string
		wantSuffix  string
	}{
		{name: "withPrefix", prefix: "voiceovers", file: "acme.mp3", contentType: "audio/mpeg", wantPrefix: "voiceovers/acme-", wantSuffix: ".mp3"},
		{name: "noPrefix", file: "acme.mp3", contentType: "audio/mpeg", wantPrefix: "acme-", wantSuffix: ".mp3"},
		{name: "stripsDirectories", file: "../../etc/acme.mp3", contentType: "audio/mpeg", wantPrefix: "acme-", wantSuffix: ".mp3"},
		{name: "extFromContentType", file: "logo", contentType: "image/png", wantPrefix: "logo-", wantSuffix: ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectName(tt.prefix, tt.file, tt.contentType)
			if !strings.HasPrefix(got, tt.wantPrefix) || !strings.HasSuffix(got, tt.wantSuffix) {
				t.Errorf("objectName() = %q, want %q...%q", got, tt.wantPrefix, tt.wantSuffix)
			}
		})
	}

	if objectName("", "a.mp3", "audio/mpeg") == objectName("", "a.mp3", "audio/mpeg") {
		t.Error("objectName() returned the same name twice")
	}
}

func TestPublicURL(t *testing.T) {
	got := publicURL("orion-media", "voiceovers/my file.mp3")
	want := "https://storage.googleapis.com/orion-media/voiceovers/my%20file.mp3"
	if got != want {
		t.Errorf("publicURL() = %q, want %q", got, want)
	}
}

func TestLocalStorageSaveMedia(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewLocalStorage(filepath.Join(tmpDir, "out"), nil)

	path, err := s.SaveMedia([]byte("fake media"), "post.jpg")
	if err != nil {
		t.Fatalf("SaveMedia() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "fake media" {
		t.Errorf("saved data = %q, want fake media", data)
	}
}

func TestLocalStorageDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	tests := []struct {
		name     string
		src      string
		filename string
		wantFile string
		wantData string
		wantErr  bool
	}{
		{name: "http", src: server.URL + "/render/abc.mp4?sig=1", filename: "post", wantFile: "post.mp4", wantData: "video bytes"},
		{name: "explicitExt", src: server.URL + "/render/abc", filename: "post.mov", wantFile: "post.mov", wantData: "video bytes"},
		{name: "dataURI", src: "data:audio/mpeg;base64,bXAz", filename: "voice.mp3", wantFile: "voice.mp3", wantData: "mp3"},
		{name: "notFound", src: server.URL + "/missing.mp4", filename: "post", wantErr: true},
		{name: "badDataURI", src: "data:text/plain,hello", filename: "x.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewLocalStorage(dir, server.Client())

			path, err := s.Download(context.Background(), tt.src, tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Error("Download() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if filepath.Base(path) != tt.wantFile {
				t.Errorf("file = %q, want %q", filepath.Base(path), tt.wantFile)
			}
			data, _ := os.ReadFile(path)
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
		})
	}
}
