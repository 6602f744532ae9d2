// Package storage archives downloaded job artifacts to long-term
// object storage. The compute service's scratch spaces are transient;
// runs that matter get their outputs copied to an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the slice of the S3 API the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver copies local artifact files into an S3 bucket, keyed by
// job ID and basename under an optional prefix
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewArchiver creates an archiver backed by the default AWS credential
// chain
func NewArchiver(ctx context.Context, bucket, prefix string, logger zerolog.Logger) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// NewArchiverWithClient creates an archiver over an existing client.
// Tests use this to substitute a fake.
func NewArchiverWithClient(client ObjectPutter, bucket, prefix string, logger zerolog.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// ArchiveFiles uploads each local file under <prefix>/<jobID>/<basename>
// and returns the object keys written. It stops at the first failure,
// returning the keys archived so far alongside the error.
func (a *Archiver) ArchiveFiles(ctx context.Context, jobID string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		key := path.Join(a.prefix, jobID, filepath.Base(p))
		if err := a.putFile(ctx, key, p); err != nil {
			return keys, fmt.Errorf("archiving %s: %w", p, err)
		}
		keys = append(keys, key)
		a.logger.Info().Str("bucket", a.bucket).Str("key", key).Msg("archived artifact")
	}
	return keys, nil
}

func (a *Archiver) putFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   f,
	})
	return err
}
