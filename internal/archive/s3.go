package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/model"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes the escalation log of a resolved case to object storage
// as a single JSON document.
type S3Archiver struct {
	client objectPutter
	bucket string
	logger zerolog.Logger
	now    func() time.Time
}

// Options configure the S3 client. An empty Endpoint uses AWS; any other
// value is treated as an S3-compatible store with path-style addressing.
type Options struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func NewS3Archiver(opts Options, logger zerolog.Logger) *S3Archiver {
	s3opts := s3.Options{
		Region:      opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3opts.UsePathStyle = true
	}
	return &S3Archiver{
		client: s3.New(s3opts),
		bucket: opts.Bucket,
		logger: logger.With().Str("component", "s3-archiver").Logger(),
		now:    time.Now,
	}
}

// Document is the archived form of a case log.
type Document struct {
	CaseID     string                     `json:"caseId"`
	ArchivedAt time.Time                  `json:"archivedAt"`
	Entries    []model.EscalationLogEntry `json:"entries"`
}

// ObjectKey is where the log of caseID is stored.
func ObjectKey(caseID string) string {
	return fmt.Sprintf("cases/%s/escalation-log.json", caseID)
}

func (a *S3Archiver) Archive(ctx context.Context, caseID string, entries []model.EscalationLogEntry) error {
	if entries == nil {
		entries = []model.EscalationLogEntry{}
	}
	body, err := json.Marshal(Document{CaseID: caseID, ArchivedAt: a.now().UTC(), Entries: entries})
	if err != nil {
		return fmt.Errorf("encode escalation log: %w", err)
	}

	key := ObjectKey(caseID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}

	a.logger.Info().Str("case_id", caseID).Str("key", key).Int("entries", len(entries)).Msg("escalation log archived")
	return nil
}
