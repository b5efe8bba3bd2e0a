package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by S3Archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LeadRecord is the archived JSON document.
type LeadRecord struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Fields      []string  `json:"fields"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// S3Archive stores every lead record as one JSON object.
type S3Archive struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archive returns nil when bucket is empty.
func NewS3Archive(client S3API, bucket, prefix string) *S3Archive {
	if client == nil || bucket == "" {
		return nil
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "leads/v1"
	}
	return &S3Archive{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (a *S3Archive) Append(ctx context.Context, destination string, fields []string) error {
	now := a.now().UTC()
	rec := LeadRecord{
		ID:          uuid.NewString(),
		Destination: destination,
		Fields:      append([]string(nil), fields...),
		ArchivedAt:  now,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal lead record: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%d/%02d/%02d/%s.json",
		a.prefix, destination, now.Year(), now.Month(), now.Day(), rec.ID)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("sink: s3 put %s: %w", key, err)
	}
	return nil
}
