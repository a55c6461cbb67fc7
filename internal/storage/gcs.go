package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const publicHost = "https://storage.googleapis.com"

// GCSPublisher uploads media to a Cloud Storage bucket and returns its public URL.
// The bucket must allow public reads for the renderer to fetch the object.
type GCSPublisher struct {
	client *storage.Client
	bucket string
	prefix string
}

type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

func NewGCSPublisher(ctx context.Context, cfg GCSConfig) (*GCSPublisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("create GCS publisher: bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSPublisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (p *GCSPublisher) Close() error {
	return p.client.Close()
}

func (p *GCSPublisher) Publish(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	object := objectName(p.prefix, name, contentType)

	w := p.client.Bucket(p.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", p.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", p.bucket, object, err)
	}

	return publicURL(p.bucket, object), nil
}

// objectName builds a collision-free object path, keeping name as a readable stem.
func objectName(prefix, name, contentType string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(path.Base(name), ext)
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	object := stem + "-" + uuid.NewString() + ext
	if stem == "" || stem == "." || stem == "/" {
		object = uuid.NewString() + ext
	}
	if prefix != "" {
		object = prefix + "/" + object
	}
	return object
}

func publicURL(bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, strings.Join(segments, "/"))
}
