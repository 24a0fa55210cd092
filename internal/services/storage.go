package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chachabrian/foodbridge-backend/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// StoredFile is the result of an upload. Key identifies the object for
// deletion, URL is what clients fetch.
type StoredFile struct {
	Key string
	URL string
}

// Storage keeps post images.
type Storage interface {
	Upload(ctx context.Context, file *multipart.FileHeader, folder string) (*StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// InitStorage picks S3 when fully configured and local disk otherwise.
func InitStorage(cfg *config.Config, log *zap.Logger) (Storage, error) {
	if cfg.S3.Enabled() {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.S3.Region),
			Credentials: credentials.NewStaticCredentials(
				cfg.S3.AccessKey,
				cfg.S3.SecretKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}

		log.Info("AWS S3 storage initialized", zap.String("bucket", cfg.S3.Bucket))
		return &S3Storage{
			client:   s3.New(sess),
			uploader: s3manager.NewUploader(sess),
			bucket:   cfg.S3.Bucket,
			region:   cfg.S3.Region,
		}, nil
	}

	log.Warn("AWS S3 not configured, using local file storage", zap.String("dir", cfg.UploadDir))
	return NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
}

// readImage loads the upload and checks its size and sniffed type.
func readImage(file *multipart.FileHeader) ([]byte, string, error) {
	if file.Size > maxImageSize {
		return nil, "", invalidInput("Image must be at most 5MB")
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, io.LimitReader(src, maxImageSize+1)); err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if buffer.Len() > maxImageSize {
		return nil, "", invalidInput("Image must be at most 5MB")
	}

	contentType := http.DetectContentType(buffer.Bytes())
	if !allowedImageTypes[contentType] {
		return nil, "", invalidInput("Unsupported image type %s", contentType)
	}
	return buffer.Bytes(), contentType, nil
}

func objectName(folder, filename string) string {
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

func (s *S3Storage) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (*StoredFile, error) {
	data, contentType, err := readImage(file)
	if err != nil {
		return nil, err
	}

	key := objectName(folder, file.Filename)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &StoredFile{
		Key: key,
		URL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// LocalStorage writes under dir, served by the router at /uploads.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) Upload(_ context.Context, file *multipart.FileHeader, folder string) (*StoredFile, error) {
	data, _, err := readImage(file)
	if err != nil {
		return nil, err
	}

	key := objectName(folder, file.Filename)
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StoredFile{Key: key, URL: fmt.Sprintf("%s/uploads/%s", l.baseURL, key)}, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
