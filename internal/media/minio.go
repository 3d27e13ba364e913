// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package media stores tenant avatar images in S3-compatible object
// storage.
package media

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"

	"github.com/rentnest/rentnest/internal/auth"
)

// Options configures the object-storage client.
type Options struct {
	// Endpoint is the storage endpoint, with or without scheme.
	Endpoint string
	// AccessKey and SecretKey authenticate against the endpoint.
	AccessKey string
	SecretKey string
	// Bucket must already exist; New fails fast when it does not.
	Bucket string
	// PublicBaseURL is the base for returned object URLs. When empty,
	// URLs are built from the endpoint and bucket.
	PublicBaseURL string
}

// Store uploads avatars to a single bucket.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// New creates a Store and verifies the target bucket exists. The
// endpoint scheme, when present, selects TLS and is stripped before the
// client sees it.
func New(ctx context.Context, opts Options) (*Store, error) {
	endpoint := opts.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, oops.Code("MEDIA_CLIENT_FAILED").
			With("endpoint", endpoint).
			Wrap(err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, oops.Code("MEDIA_BUCKET_CHECK_FAILED").
			With("bucket", opts.Bucket).
			Wrap(err)
	}
	if !exists {
		return nil, oops.Code("MEDIA_BUCKET_MISSING").
			With("bucket", opts.Bucket).
			Errorf("bucket %q does not exist", opts.Bucket)
	}

	publicBase := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBase == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		publicBase = scheme + "://" + endpoint + "/" + opts.Bucket
	}

	return &Store{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: publicBase,
	}, nil
}

// Upload stores the object under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", oops.Code("MEDIA_UPLOAD_FAILED").
			With("bucket", s.bucket).
			With("key", key).
			Wrap(err)
	}
	return s.publicBaseURL + "/" + key, nil
}

var _ auth.Uploader = (*Store)(nil)
