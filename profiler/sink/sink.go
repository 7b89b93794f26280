// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink provides the output targets trace data is flushed to.
//
// A target is either a local path or an s3://bucket/key URL. Targets ending
// in ".zst" or ".gz" are compressed with zstd or gzip respectively.
package sink // import "github.com/base-framework/base/profiler/sink"

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	sha256 "github.com/minio/sha256-simd"
	log "github.com/sirupsen/logrus"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput,
		optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type options struct {
	s3Client PutObjectAPI
}

// Option configures Open.
type Option func(*options)

// WithS3Client sets the client used for s3:// targets. By default a client
// is created from the default AWS configuration.
func WithS3Client(client PutObjectAPI) Option {
	return func(o *options) {
		o.s3Client = client
	}
}

// Compression returns the compression implied by the target suffix: "zstd",
// "gzip" or "" for none.
func Compression(target string) string {
	switch {
	case strings.HasSuffix(target, ".zst"):
		return "zstd"
	case strings.HasSuffix(target, ".gz"):
		return "gzip"
	default:
		return ""
	}
}

// Open creates the target. Data written to it is only guaranteed to be
// persisted once Close returned without error.
func Open(ctx context.Context, target string, opts ...Option) (io.WriteCloser, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var base io.WriteCloser
	if strings.HasPrefix(target, "s3://") {
		upload, err := newS3Writer(ctx, target, &o)
		if err != nil {
			return nil, err
		}
		base = upload
	} else {
		f, err := os.Create(target)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", target, err)
		}
		base = f
	}

	w, err := compress(base, Compression(target))
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return w, nil
}

func compress(base io.WriteCloser, compression string) (io.WriteCloser, error) {
	switch compression {
	case "zstd":
		enc, err := zstd.NewWriter(base)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return &layered{Writer: enc, closers: []io.Closer{enc, base}}, nil
	case "gzip":
		gz := gzip.NewWriter(base)
		return &layered{Writer: gz, closers: []io.Closer{gz, base}}, nil
	default:
		return base, nil
	}
}

// layered closes a compressor before the writer it feeds.
type layered struct {
	io.Writer
	closers []io.Closer
}

func (l *layered) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenReader opens a local target for reading, undoing its compression.
func OpenReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch Compression(path) {
	case "zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return &readCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil
	case "gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &readCloser{Reader: gz, close: func() error {
			return errors.Join(gz.Close(), f.Close())
		}}, nil
	default:
		return f, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	return r.close()
}

// s3Writer spools data to a temporary file and uploads it on Close.
type s3Writer struct {
	ctx    context.Context
	client PutObjectAPI
	bucket string
	key    string
	spool  *os.File
}

func parseS3URL(target string) (bucket, key string, err error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 target %q: %w", target, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 target %q: expected s3://bucket/key", target)
	}
	return u.Host, key, nil
}

func newS3Writer(ctx context.Context, target string, o *options) (*s3Writer, error) {
	bucket, key, err := parseS3URL(target)
	if err != nil {
		return nil, err
	}
	client := o.s3Client
	if client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		client = s3.NewFromConfig(cfg)
	}
	spool, err := os.CreateTemp("", "trace-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	return &s3Writer{ctx: ctx, client: client, bucket: bucket, key: key, spool: spool}, nil
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.spool.Write(p)
}

func contentType(key string) string {
	switch Compression(key) {
	case "zstd":
		return "application/zstd"
	case "gzip":
		return "application/gzip"
	default:
		return "application/json"
	}
}

func (w *s3Writer) Close() error {
	if w.spool == nil {
		return nil
	}
	spool := w.spool
	w.spool = nil
	defer func() {
		_ = spool.Close()
		if err := os.Remove(spool.Name()); err != nil {
			log.Warnf("Failed to remove spool file %s: %v", spool.Name(), err)
		}
	}()

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind spool file: %w", err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, spool); err != nil {
		return fmt.Errorf("failed to hash content of %q: %v", spool.Name(), err)
	}
	contentSHA256 := base64.StdEncoding.EncodeToString(hasher.Sum(nil))
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind spool file: %w", err)
	}

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:         aws.String(w.bucket),
		Key:            aws.String(w.key),
		Body:           spool,
		ContentType:    aws.String(contentType(w.key)),
		ChecksumSHA256: aws.String(contentSHA256),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.bucket, w.key, err)
	}
	log.Debugf("Uploaded trace to s3://%s/%s", w.bucket, w.key)
	return nil
}
