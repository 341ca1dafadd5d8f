package filestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcsConfig struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	CredentialsFile string `json:"credentials_file"`
}

type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func init() {
	Register("gcs", createGCSStore)
}

func createGCSStore(args interface{}) (Store, error) {
	cfg := &gcsConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *gcsStore) Type() string {
	return "gcs"
}

func (s *gcsStore) List(ctx context.Context) ([]Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gcs objects: %w", err)
		}
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		out = append(out, Object{Key: attrs.Name})
	}
	return out, nil
}
