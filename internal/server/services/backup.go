package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foliosync/foliosync/internal/models"
	sc "github.com/foliosync/foliosync/internal/server/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// BackupStore copies element snapshots to an S3-compatible bucket before
// they are soft-deleted. Failures are reported to the caller, which treats
// them as best-effort.
type BackupStore struct {
	config *sc.Config
}

// NewBackupStore constructs a store from the server config.
func NewBackupStore(config *sc.Config) *BackupStore {
	return &BackupStore{config: config}
}

func backupStorageKey(e *models.Element) string {
	d := time.Now().UTC()
	return fmt.Sprintf("deleted/%s/%s/%s/%d.json", e.OwnerID, e.ElementType, e.ElementID, d.UnixNano())
}

func (b *BackupStore) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(b.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			b.config.S3RootUser,     // MINIO_ROOT_USER
			b.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(b.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// PutElement writes a JSON snapshot of the element to the backup bucket and
// returns the storage key.
func (b *BackupStore) PutElement(ctx context.Context, e *models.Element) (string, error) {

	client, err := b.getClient()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("error serializing element: %w", err)
	}

	bucket := b.config.S3Bucket
	key := backupStorageKey(e)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading backup: %w", err)
	}

	return key, nil
}
