package artifact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

// S3API is the narrow slice of the S3 client the archiver needs.
// The interface allows tests to run against an in-memory client.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// ArchiveConfig holds the archive destination settings.
type ArchiveConfig struct {
	// Bucket is the S3 bucket receiving run artifacts.
	Bucket string
	// Prefix is an optional key prefix (e.g. "stackctl/prod").
	Prefix string
	// Region overrides the default AWS region when non-empty.
	Region string
}

// Archiver uploads run artifacts (plan files, journals) to S3 for audit.
// Archiving is best-effort housekeeping and never fails a run.
type Archiver struct {
	client S3API
	fs     afero.Fs
	logger *slog.Logger
	bucket string
	prefix string
}

// NewArchiver constructs an Archiver against real AWS credentials resolved
// from the default chain.
func NewArchiver(cfg ArchiveConfig, fs afero.Fs, logger *slog.Logger) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	return NewArchiverWithClient(s3.NewFromConfig(awsCfg), cfg, fs, logger), nil
}

// NewArchiverWithClient constructs an Archiver with a caller-supplied client,
// primarily for tests.
func NewArchiverWithClient(client S3API, cfg ArchiveConfig, fs afero.Fs, logger *slog.Logger) *Archiver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Archiver{
		client: client,
		fs:     fs,
		logger: logger,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// Archive uploads each existing local file under <prefix>/<runID>/<basename>.
// Missing files are skipped; upload failures are logged and counted, and the
// returned error summarizes them without identifying a fatal condition.
func (a *Archiver) Archive(ctx context.Context, runID string, paths ...string) error {
	failed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		ok, err := afero.Exists(a.fs, p)
		if err != nil || !ok {
			continue
		}
		data, err := afero.ReadFile(a.fs, p)
		if err != nil {
			failed++
			if a.logger != nil {
				a.logger.Warn("failed to read artifact for archive", "path", p, "error", err)
			}
			continue
		}

		key := a.buildKey(runID, filepath.Base(p))
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			failed++
			if a.logger != nil {
				a.logger.Warn("failed to archive artifact", "bucket", a.bucket, "key", key, "error", err)
			}
			continue
		}
		if a.logger != nil {
			a.logger.Debug("archived artifact", "bucket", a.bucket, "key", key, "bytes", len(data))
		}
	}

	if failed > 0 {
		return fmt.Errorf("archive: %d upload(s) failed", failed)
	}
	return nil
}

func (a *Archiver) buildKey(parts ...string) string {
	all := parts
	if a.prefix != "" {
		all = append([]string{a.prefix}, parts...)
	}
	return path.Join(all...)
}
