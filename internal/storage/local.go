package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"orion/internal/fault"
	"orion/pkg/httputil"
)

// LocalStorage saves finished media into an output directory.
type LocalStorage struct {
	outputDir string
	client    *httputil.RetryClient
}

func NewLocalStorage(outputDir string, httpClient *http.Client) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		client:    httputil.NewRetryClient(httpClient, httputil.DefaultRetryConfig()),
	}
}

func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// SaveMedia writes data to filename inside the output directory.
func (s *LocalStorage) SaveMedia(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(s.outputDir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}

	return path, nil
}

// Download fetches src, which may be an http(s) URL or a base64 data URI, and
// saves it as filename. When filename has no extension the one from src is used.
func (s *LocalStorage) Download(ctx context.Context, src, filename string) (string, error) {
	if strings.HasPrefix(src, "data:") {
		data, err := decodeDataURI(src)
		if err != nil {
			return "", err
		}
		return s.SaveMedia(data, filename)
	}

	if filepath.Ext(filename) == "" {
		filename += mediaExt(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fault.Unreachable("media", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &fault.UpstreamError{Service: "media", StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}

	return s.SaveMedia(data, filename)
}

func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("decode data URI: unsupported encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return data, nil
}

func mediaExt(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return filepath.Ext(src)
}
