//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, s Sink, name string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func exerciseSink(t *testing.T, s Sink) {
	ctx := context.Background()

	ok, err := s.Exists(ctx, "customers.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Open(ctx, "customers.csv")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Write(ctx, "customers.csv", strings.NewReader("customer_id,country\n")))
	ok, err = s.Exists(ctx, "customers.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "customer_id,country\n", readAll(t, s, "customers.csv"))

	require.NoError(t, s.Write(ctx, "customers.csv", strings.NewReader("replaced\n")))
	assert.Equal(t, "replaced\n", readAll(t, s, "customers.csv"))

	sub := Sub(s, "reports")
	require.NoError(t, sub.Write(ctx, "01.csv", strings.NewReader("x")))
	ok, err = s.Exists(ctx, "reports/01.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, sub.Location("01.csv"), "reports")
}

func TestFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFS(dir)
	require.NoError(t, err)

	exerciseSink(t, s)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "01.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.Equal(t, filepath.Join(dir, "customers.csv"), s.Location("customers.csv"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temporary file left behind: %s", e.Name())
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseSink(t, m)
	assert.Equal(t, []string{"customers.csv", "reports/01.csv"}, m.Names())
	assert.Equal(t, "memory://customers.csv", m.Location("customers.csv"))
}

type fakeS3 struct {
	objects map[string][]byte
	headErr error
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3(t *testing.T) {
	client := &fakeS3{objects: make(map[string][]byte)}
	s := NewS3WithClient(client, "retail", "/runs/2011/")

	exerciseSink(t, s)

	assert.Contains(t, client.objects, "retail/runs/2011/customers.csv")
	assert.Contains(t, client.objects, "retail/runs/2011/reports/01.csv")
	assert.Equal(t, "s3://retail/runs/2011/customers.csv", s.Location("customers.csv"))
}

func TestS3HeadError(t *testing.T) {
	client := &fakeS3{objects: make(map[string][]byte), headErr: errors.New("access denied")}
	s := NewS3WithClient(client, "retail", "")

	_, err := s.Exists(context.Background(), "customers.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.csv", objectKey("", "a.csv"))
	assert.Equal(t, "a.csv", objectKey("/", "a.csv"))
	assert.Equal(t, "p/q/a.csv", objectKey("p/q/", "a.csv"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"fs", Config{Driver: DriverFS, Dir: "out"}, false},
		{"fs without dir", Config{Driver: DriverFS}, true},
		{"s3", Config{Driver: DriverS3, Bucket: "b"}, false},
		{"gcs without bucket", Config{Driver: DriverGCS}, true},
		{"memory", Config{Driver: DriverMemory}, false},
		{"unknown", Config{Driver: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewMemory(t *testing.T) {
	s, err := New(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
}
