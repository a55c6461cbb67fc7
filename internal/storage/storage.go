// Package storage makes generated media reachable: voiceover audio is published
// somewhere the renderer can fetch it, and finished assets are downloaded to disk.
package storage

import (
	"context"
	"encoding/base64"
)

// Publisher turns raw media into a URL another service can fetch.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DataURIPublisher inlines media as a data URI. Nothing leaves the process.
type DataURIPublisher struct{}

func (DataURIPublisher) Publish(_ context.Context, _ string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
