package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// Snapshot is the last-known-good paper set, kept in S3 so the feed can
// still render when the backend is unreachable.
type Snapshot struct {
	Papers     []types.Paper `json:"papers"`
	TakenAt    time.Time     `json:"taken_at"`
	PaperCount int           `json:"paper_count"`
}

// Store reads and writes gzipped JSON snapshots in S3. Each save writes
// a dated key plus a fixed "latest" key that loads never have to list
// for.
type Store struct {
	s3Client s3iface.S3API
	bucket   string
	prefix   string
	log      *logger.Logger
}

// NewStore creates a snapshot store against a real S3 session
func NewStore(bucket, prefix, region string, log *logger.Logger) (*Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewStoreWithClient(s3.New(sess), bucket, prefix, log), nil
}

// NewStoreWithClient creates a store with a custom S3 client (for testing)
func NewStoreWithClient(s3Client s3iface.S3API, bucket, prefix string, log *logger.Logger) *Store {
	return &Store{
		s3Client: s3Client,
		bucket:   bucket,
		prefix:   prefix,
		log:      log,
	}
}

// Save writes the paper set as a dated snapshot and updates the latest
// pointer.
func (s *Store) Save(ctx context.Context, papers []types.Paper, takenAt time.Time) error {
	snap := Snapshot{
		Papers:     papers,
		TakenAt:    takenAt.UTC(),
		PaperCount: len(papers),
	}

	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	compressed, err := compress(jsonData)
	if err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	for _, key := range []string{s.datedKey(takenAt), s.latestKey()} {
		input := &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(compressed),
			ContentType: aws.String("application/gzip"),
			Metadata: map[string]*string{
				"paper-count": aws.String(fmt.Sprintf("%d", len(papers))),
				"taken-at":    aws.String(snap.TakenAt.Format(time.RFC3339)),
			},
		}
		if _, err := s.s3Client.PutObjectWithContext(ctx, input); err != nil {
			return logger.WrapError(err, logger.ErrorTypeStorage,
				fmt.Sprintf("failed to upload snapshot %s", key))
		}
	}

	s.log.InfoWithCount("snapshot saved", len(papers), map[string]interface{}{
		"bucket": s.bucket,
		"key":    s.datedKey(takenAt),
		"bytes":  len(compressed),
	})
	return nil
}

// LoadLatest downloads and decodes the most recent snapshot
func (s *Store) LoadLatest(ctx context.Context) (*Snapshot, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.latestKey()),
	}

	result, err := s.s3Client.GetObjectWithContext(ctx, input)
	if err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeStorage, "failed to download snapshot")
	}
	defer result.Body.Close()

	gzipReader, err := gzip.NewReader(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	data, err := io.ReadAll(gzipReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot content: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeData, "failed to parse snapshot")
	}

	s.log.InfoWithCount("snapshot loaded", len(snap.Papers), map[string]interface{}{
		"taken_at": snap.TakenAt.Format(time.RFC3339),
	})
	return &snap, nil
}

func (s *Store) datedKey(t time.Time) string {
	// Format: <prefix>/YYYY-MM-DD/papers-YYYYMMDD-HHMMSS.json.gz
	return fmt.Sprintf("%s/%s/papers-%s.json.gz",
		s.prefix, t.UTC().Format("2006-01-02"), t.UTC().Format("20060102-150405"))
}

func (s *Store) latestKey() string {
	return s.prefix + "/latest.json.gz"
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := gzipWriter.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}
