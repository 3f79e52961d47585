// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3store mirrors releases into an S3-compatible bucket. Each
// tag is a key prefix:
//
//	<prefix>/<tag>/.tag            commit the tag points at
//	<prefix>/<tag>/.release.json   release metadata
//	<prefix>/<tag>/<asset>         uploaded assets
//
// PUT replaces objects, so uploads need no delete step.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bureau-foundation/staticrel/lib/release"
)

const (
	tagObject     = ".tag"
	releaseObject = ".release.json"
)

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	StatObject(ctx context.Context, bucket, object string, options minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, options minio.PutObjectOptions) (minio.UploadInfo, error)
	FPutObject(ctx context.Context, bucket, object, filePath string, options minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, options minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Config locates the bucket.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	Insecure  bool
	AccessKey string
	SecretKey string
}

// Store is an S3-backed [release.Store].
type Store struct {
	client objectAPI
	bucket string
	prefix string
}

// New connects to the endpoint. No request is made until the first
// store operation.
func New(config Config) (*Store, error) {
	if config.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: !config.Insecure,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client for %s: %w", config.Endpoint, err)
	}
	return newStore(client, config.Bucket, config.Prefix), nil
}

func newStore(client objectAPI, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (store *Store) key(tag, name string) string {
	return path.Join(store.prefix, tag, name)
}

func (store *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := store.client.StatObject(ctx, store.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	response := minio.ToErrorResponse(err)
	if response.Code == "NoSuchKey" || response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("stat s3://%s/%s: %w", store.bucket, key, err)
}

func (store *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := store.client.PutObject(ctx, store.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", store.bucket, key, err)
	}
	return nil
}

func (store *Store) TagExists(ctx context.Context, tag string) (bool, error) {
	return store.exists(ctx, store.key(tag, tagObject))
}

func (store *Store) CreateTag(ctx context.Context, tag, commit string) error {
	return store.put(ctx, store.key(tag, tagObject), []byte(commit+"\n"), "text/plain")
}

func (store *Store) ReleaseExists(ctx context.Context, tag string) (bool, error) {
	return store.exists(ctx, store.key(tag, releaseObject))
}

func (store *Store) CreateRelease(ctx context.Context, metadata release.Release) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return store.put(ctx, store.key(metadata.Tag, releaseObject), data, "application/json")
}

func (store *Store) UploadAsset(ctx context.Context, tag string, asset release.Asset) error {
	if asset.Name == "" || strings.HasPrefix(asset.Name, ".") || strings.Contains(asset.Name, "/") {
		return fmt.Errorf("invalid asset name %q", asset.Name)
	}
	key := store.key(tag, asset.Name)
	_, err := store.client.FPutObject(ctx, store.bucket, key, asset.Path,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", store.bucket, key, err)
	}
	return nil
}

func (store *Store) ListAssets(ctx context.Context, tag string) ([]string, error) {
	prefix := store.key(tag, "") + "/"
	var names []string
	for object := range store.client.ListObjects(ctx, store.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", store.bucket, prefix, object.Err)
		}
		name := strings.TrimPrefix(object.Key, prefix)
		if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
