// Package storage archives sanitized items to S3-compatible object storage.
// Only post-validation sanitized content is ever written here; raw items
// never reach this package.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/store"
)

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// S3Client archives sanitized items in S3-compatible storage (e.g., RustFS).
// Objects are keyed under the organization's namespace so offboarding can
// remove an organization's archive by prefix.
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates a new S3Client with the given configuration
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// archivedItem is the JSON document stored per sanitized item.
type archivedItem struct {
	SourceItemID string                  `json:"source_item_id"`
	OrgID        string                  `json:"org_id"`
	SourceType   domain.SourceType       `json:"source_type"`
	Content      string                  `json:"content"`
	Redactions   []domain.RedactionEntry `json:"redactions,omitempty"`
	Truncated    bool                    `json:"truncated"`
	CreatedAt    string                  `json:"created_at"`
}

func archiveKey(orgID, sourceItemID string) string {
	return fmt.Sprintf("items/%s/%s.json", store.NamespaceForOrg(orgID), sourceItemID)
}

// ArchiveItem writes one sanitized item as a JSON object.
func (c *S3Client) ArchiveItem(ctx context.Context, item *domain.SanitizedItem) error {
	body, err := json.Marshal(archivedItem{
		SourceItemID: item.SourceItemID,
		OrgID:        item.OrgID,
		SourceType:   item.SourceType,
		Content:      item.Content,
		Redactions:   item.Report.Entries,
		Truncated:    item.Report.Truncated,
		CreatedAt:    item.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode archive item: %w", err)
	}

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(archiveKey(item.OrgID, item.SourceItemID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive item: %w", err)
	}

	return nil
}

// ListOrgArchive returns the keys of every archived object for the
// organization.
func (c *S3Client) ListOrgArchive(ctx context.Context, orgID string) ([]string, error) {
	prefix := fmt.Sprintf("items/%s/", store.NamespaceForOrg(orgID))

	var keys []string
	var continuation *string
	for {
		out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list archive objects: %w", err)
		}

		for _, obj := range out.Contents {
			keys = append(keys, *obj.Key)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return keys, nil
		}
		continuation = out.NextContinuationToken
	}
}

// DeleteOrgArchive removes every archived object under the organization's
// prefix. Part of offboarding.
func (c *S3Client) DeleteOrgArchive(ctx context.Context, orgID string) error {
	prefix := fmt.Sprintf("items/%s/", store.NamespaceForOrg(orgID))

	var continuation *string
	for {
		out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return fmt.Errorf("failed to list archive objects: %w", err)
		}

		for _, obj := range out.Contents {
			_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete archive object: %w", err)
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuation = out.NextContinuationToken
	}
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
