package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrec/lz4/v4"
)

const (
	DefaultWordsPath = "/usr/share/dict/words"

	objectScheme = "s3://"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ObjectFetcher opens a word list stored in an object store bucket.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// SourceOptions configures where word lists addressed as s3://bucket/key are
// fetched from. Plain paths ignore it.
type SourceOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Insecure  bool

	// Fetcher overrides the minio-backed fetcher built from the fields above.
	Fetcher ObjectFetcher
}

// Load reads the word list at location fully into memory, decompresses it
// when it carries a gzip, zstd or lz4 frame header and builds a Corpus.
func Load(ctx context.Context, location string, opts SourceOptions) (*Corpus, error) {
	raw, err := ReadSource(ctx, location, opts)
	if err != nil {
		return nil, err
	}
	return Build(raw), nil
}

func ReadSource(ctx context.Context, location string, opts SourceOptions) ([]byte, error) {
	if location == "" {
		location = DefaultWordsPath
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(location, objectScheme) {
		raw, err = readObject(ctx, location, opts)
	} else {
		raw, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("load word list %s: %w", location, err)
	}

	out, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress word list %s: %w", location, err)
	}
	return out, nil
}

func readObject(ctx context.Context, location string, opts SourceOptions) ([]byte, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(location, objectScheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, errors.New("object location must look like s3://bucket/key")
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		f, err := newMinioFetcher(opts)
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	rc, err := fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(rc)
}

func decompress(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, magicGzip):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = zr.Close()
		}()
		return io.ReadAll(zr)
	case bytes.HasPrefix(raw, magicZstd):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(raw, nil)
	case bytes.HasPrefix(raw, magicLZ4):
		return io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}

type minioFetcher struct {
	client *minio.Client
}

func newMinioFetcher(opts SourceOptions) (*minioFetcher, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("object store endpoint is required for s3:// word lists")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: !opts.Insecure,
	})
	if err != nil {
		return nil, err
	}
	return &minioFetcher{client: client}, nil
}

func (f *minioFetcher) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}
