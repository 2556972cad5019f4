package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/foliosync/foliosync/internal/models"
	sc "github.com/foliosync/foliosync/internal/server/config"
)

func TestBackupStore_PutElement(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	defer func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	}()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}

	var gotBucket, gotKey string
	var gotBody []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		gotBucket = aws.ToString(in.Bucket)
		gotKey = aws.ToString(in.Key)
		var err error
		gotBody, err = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, err
	}

	cfg := &sc.Config{}
	cfg.LoadDefaults()
	store := NewBackupStore(cfg)

	e := &models.Element{
		OwnerID: "u1", ElementType: "project", ElementID: "p1",
		Value: json.RawMessage(`{"title":"demo"}`),
	}

	key, err := store.PutElement(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBucket != cfg.S3Bucket {
		t.Fatalf("wrong bucket %q", gotBucket)
	}
	if key != gotKey || !strings.HasPrefix(key, "deleted/u1/project/p1/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected storage key %q", key)
	}

	var stored models.Element
	if err := json.Unmarshal(gotBody, &stored); err != nil {
		t.Fatalf("backup body must be the JSON snapshot: %v", err)
	}
	if string(stored.Value) != `{"title":"demo"}` {
		t.Fatalf("unexpected snapshot value %s", stored.Value)
	}
}

func TestBackupStore_PutElementUploadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPut := putObject
	defer func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		putObject = origPut
	}()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("connection refused")
	}

	cfg := &sc.Config{}
	cfg.LoadDefaults()
	store := NewBackupStore(cfg)

	if _, err := store.PutElement(context.Background(), &models.Element{OwnerID: "u1"}); err == nil {
		t.Fatalf("expected error")
	}
}
