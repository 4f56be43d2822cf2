package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fitstack/coachd/internal/service"
)

// DocumentStoreConfig holds configuration for DocumentStore
type DocumentStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UsePathStyle    bool
}

// DocumentStore reads knowledge documents from S3-compatible storage
// (e.g., RustFS). Keys are laid out as <prefix><coach_id>/<area>/<name>.md;
// the path segments carry the partition and expertise defaults, and a
// leading markdown heading overrides the filename-derived title.
type DocumentStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewDocumentStore creates a DocumentStore with the given configuration
func NewDocumentStore(ctx context.Context, cfg DocumentStoreConfig) (*DocumentStore, error) {
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

	// Load AWS config
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

	// Create S3 client with path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &DocumentStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

// ListDocuments returns the keys of every markdown or text document under
// the configured prefix.
func (s *DocumentStore) ListDocuments(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if isDocumentKey(key) {
				keys = append(keys, key)
			}
		}
	}

	return keys, nil
}

// FetchDocument reads and parses one document.
func (s *DocumentStore) FetchDocument(ctx context.Context, key string) (*service.SourceDocument, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer output.Body.Close()

	raw, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	doc := &service.SourceDocument{
		Key:     key,
		Content: strings.TrimSpace(string(raw)),
	}

	coachID, area := pathSegments(s.prefix, key)
	doc.CoachID = coachID
	doc.ExpertiseArea = area

	if title := headingTitle(doc.Content); title != "" {
		doc.Title = title
		doc.Content = strings.TrimSpace(strings.TrimPrefix(doc.Content, "# "+title))
	}

	return doc, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// PutDocument writes a document. Used by tests and seeding tools.
func (s *DocumentStore) PutDocument(ctx context.Context, key, content string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/markdown"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimSuffix(prefix, "/") + "/"
}

func isDocumentKey(key string) bool {
	return strings.HasSuffix(key, ".md") || strings.HasSuffix(key, ".txt")
}

// pathSegments extracts coach and expertise area from a
// <prefix><coach_id>/<area>/<name> key. Shorter keys yield empty values and
// the pipeline falls back to its configured defaults.
func pathSegments(prefix, key string) (coachID, area string) {
	trimmed := strings.TrimPrefix(key, prefix)
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 3 {
		return parts[0], parts[1]
	}
	if len(parts) == 2 {
		return parts[0], ""
	}
	return "", ""
}

// headingTitle returns the text of a leading markdown H1, if present.
func headingTitle(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	if strings.HasPrefix(line, "# ") {
		return strings.TrimSpace(strings.TrimPrefix(line, "# "))
	}
	return ""
}
