package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	appconfig "s3sweep/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type objectDownloader interface {
	DownloadObject(ctx context.Context, input *transfermanager.DownloadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.DownloadObjectOutput, error)
}

type listVersionsPaginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
}

type ClientOptions struct {
	Credentials     aws.CredentialsProvider
	ListPageTimeout time.Duration
	DownloadTimeout time.Duration
	DeleteTimeout   time.Duration
}

type S3Client struct {
	api        s3API
	downloader objectDownloader
	bucket     string

	listPageTimeout time.Duration
	downloadTimeout time.Duration
	deleteTimeout   time.Duration

	newListVersionsPaginator func(api s3.ListObjectVersionsAPIClient, input *s3.ListObjectVersionsInput) listVersionsPaginator
}

func NewS3Client(ctx context.Context, cfg appconfig.S3Config, opts ClientOptions) (*S3Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("s3 region is required")
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if opts.Credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.Credentials))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		api:                      client,
		downloader:               transfermanager.New(client, sequentialParts),
		bucket:                   cfg.Bucket,
		listPageTimeout:          opts.ListPageTimeout,
		downloadTimeout:          opts.DownloadTimeout,
		deleteTimeout:            opts.DeleteTimeout,
		newListVersionsPaginator: newAWSListVersionsPaginator,
	}, nil
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("s3 endpoint must be a valid http(s) URL: %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("s3 endpoint must use http or https: %q", raw)
	}
	return strings.TrimRight(endpoint, "/"), nil
}

func (c *S3Client) Bucket() string {
	return c.bucket
}

func (c *S3Client) ListVersions(ctx context.Context, prefix string, visit func(VersionPage) error) error {
	if c.api == nil {
		return errors.New("s3 api client is not configured")
	}
	if c.newListVersionsPaginator == nil {
		return errors.New("s3 paginator factory is not configured")
	}

	input := &s3.ListObjectVersionsInput{
		Bucket: aws.String(c.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	p := c.newListVersionsPaginator(c.api, input)
	if p == nil {
		return errors.New("s3 paginator is not configured")
	}

	for p.HasMorePages() {
		out, err := c.nextPage(ctx, p)
		if err != nil {
			return fmt.Errorf("list object versions: %w", err)
		}
		if err := visit(convertPage(out)); err != nil {
			return err
		}
	}
	return nil
}

func (c *S3Client) nextPage(ctx context.Context, p listVersionsPaginator) (*s3.ListObjectVersionsOutput, error) {
	pageCtx, cancel := withOptionalTimeout(ctx, c.listPageTimeout)
	defer cancel()
	return p.NextPage(pageCtx)
}

func (c *S3Client) DownloadVersion(ctx context.Context, ref KeyVersion, dst io.WriterAt) error {
	if c.downloader == nil {
		return errors.New("s3 downloader is not configured")
	}
	if strings.TrimSpace(ref.Key) == "" {
		return errors.New("object key is required")
	}

	dlCtx, cancel := withOptionalTimeout(ctx, c.downloadTimeout)
	defer cancel()

	input := &transfermanager.DownloadObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(ref.Key),
		WriterAt: dst,
	}
	if ref.VersionID != "" {
		input.VersionID = aws.String(ref.VersionID)
	}
	if _, err := c.downloader.DownloadObject(dlCtx, input, sequentialParts); err != nil {
		return fmt.Errorf("download object %s@%s: %w", ref.Key, ref.VersionID, err)
	}
	return nil
}

func (c *S3Client) DeleteVersions(ctx context.Context, refs []KeyVersion) (DeleteResult, error) {
	if c.api == nil {
		return DeleteResult{}, errors.New("s3 api client is not configured")
	}
	if len(refs) == 0 {
		return DeleteResult{}, nil
	}
	if len(refs) > MaxDeleteBatch {
		return DeleteResult{}, fmt.Errorf("%w: got %d", ErrBatchTooLarge, len(refs))
	}

	objects := make([]types.ObjectIdentifier, 0, len(refs))
	for _, ref := range refs {
		id := types.ObjectIdentifier{Key: aws.String(ref.Key)}
		if ref.VersionID != "" {
			id.VersionId = aws.String(ref.VersionID)
		}
		objects = append(objects, id)
	}

	delCtx, cancel := withOptionalTimeout(ctx, c.deleteTimeout)
	defer cancel()

	out, err := c.api.DeleteObjects(delCtx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete objects: %w", err)
	}

	var result DeleteResult
	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, KeyVersion{
			Key:       aws.ToString(d.Key),
			VersionID: aws.ToString(d.VersionId),
		})
	}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, DeleteFailure{
			Key:       aws.ToString(e.Key),
			VersionID: aws.ToString(e.VersionId),
			Code:      aws.ToString(e.Code),
			Message:   aws.ToString(e.Message),
		})
	}
	return result, nil
}

func convertPage(out *s3.ListObjectVersionsOutput) VersionPage {
	var page VersionPage
	if out == nil {
		return page
	}
	for _, v := range out.Versions {
		if v.Key == nil {
			continue
		}
		page.Versions = append(page.Versions, ObjectVersion{
			Key:          aws.ToString(v.Key),
			VersionID:    aws.ToString(v.VersionId),
			LastModified: aws.ToTime(v.LastModified),
			IsLatest:     aws.ToBool(v.IsLatest),
			Size:         aws.ToInt64(v.Size),
			ETag:         aws.ToString(v.ETag),
			StorageClass: string(v.StorageClass),
		})
	}
	for _, m := range out.DeleteMarkers {
		if m.Key == nil {
			continue
		}
		page.DeleteMarkers = append(page.DeleteMarkers, ObjectVersion{
			Key:            aws.ToString(m.Key),
			VersionID:      aws.ToString(m.VersionId),
			LastModified:   aws.ToTime(m.LastModified),
			IsLatest:       aws.ToBool(m.IsLatest),
			IsDeleteMarker: true,
		})
	}
	return page
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

type awsListVersionsPaginator struct {
	inner *s3.ListObjectVersionsPaginator
}

func (p *awsListVersionsPaginator) HasMorePages() bool {
	return p.inner != nil && p.inner.HasMorePages()
}

func (p *awsListVersionsPaginator) NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	if p.inner == nil {
		return nil, errors.New("s3 paginator is not configured")
	}
	return p.inner.NextPage(ctx, optFns...)
}

// newAWSListVersionsPaginator ends the listing when a page repeats the markers
// it was requested with.
func newAWSListVersionsPaginator(api s3.ListObjectVersionsAPIClient, input *s3.ListObjectVersionsInput) listVersionsPaginator {
	return &awsListVersionsPaginator{
		inner: s3.NewListObjectVersionsPaginator(api, input, func(o *s3.ListObjectVersionsPaginatorOptions) {
			o.StopOnDuplicateToken = true
		}),
	}
}

// sequentialParts keeps each download to one in-flight request.
func sequentialParts(o *transfermanager.Options) {
	o.Concurrency = 1
}
