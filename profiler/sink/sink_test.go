// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sha256 "github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"traceEvents":[{"name":"main","ph":"B"}]}`

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"trace.json", "trace.json.zst", "trace.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := Open(context.Background(), path)
			require.NoError(t, err)
			_, err = io.WriteString(w, payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := OpenReader(path)
			require.NoError(t, err)
			defer r.Close()
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, string(data))
		})
	}
}

func TestCompression(t *testing.T) {
	assert.Equal(t, "zstd", Compression("out.json.zst"))
	assert.Equal(t, "gzip", Compression("s3://b/out.gz"))
	assert.Empty(t, Compression("out.json"))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput,
	_ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.input = params
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	client := &fakeS3{}
	w, err := Open(context.Background(), "s3://traces/run/trace.json", WithS3Client(client))
	require.NoError(t, err)
	_, err = io.WriteString(w, payload)
	require.NoError(t, err)
	assert.Nil(t, client.input, "upload must wait for Close")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	require.NotNil(t, client.input)
	assert.Equal(t, "traces", aws.ToString(client.input.Bucket))
	assert.Equal(t, "run/trace.json", aws.ToString(client.input.Key))
	assert.Equal(t, "application/json", aws.ToString(client.input.ContentType))
	assert.Equal(t, payload, string(client.body))

	sum := sha256.Sum256([]byte(payload))
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]),
		aws.ToString(client.input.ChecksumSHA256))
}

func TestS3UploadCompressed(t *testing.T) {
	client := &fakeS3{}
	w, err := Open(context.Background(), "s3://traces/trace.json.zst", WithS3Client(client))
	require.NoError(t, err)
	_, err = io.WriteString(w, payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "application/zstd", aws.ToString(client.input.ContentType))
	assert.NotEqual(t, payload, string(client.body))
}

func TestS3UploadError(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	w, err := Open(context.Background(), "s3://traces/trace.json", WithS3Client(client))
	require.NoError(t, err)
	_, err = io.WriteString(w, payload)
	require.NoError(t, err)
	require.ErrorContains(t, w.Close(), "access denied")
}

func TestInvalidTargets(t *testing.T) {
	for _, target := range []string{"s3://bucket-only", "s3:///key", "s3://bucket/"} {
		_, err := Open(context.Background(), target, WithS3Client(&fakeS3{}))
		require.Error(t, err, target)
	}
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "trace.json"))
	require.Error(t, err)
}
