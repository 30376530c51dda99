package utils

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmarquez/tasknestbackend/models"
	"github.com/google/uuid"
)

// R2Client wraps the S3 client and bucket for Cloudflare R2 attachment
// storage.
type R2Client struct {
	S3     *s3.Client
	Bucket string
}

type r2Env struct {
	bucket, accessKey, secretKey, endpoint string
}

func loadR2Env() (r2Env, error) {
	e := r2Env{
		bucket:    os.Getenv("R2_BUCKET"),
		accessKey: os.Getenv("R2_ACCESS_KEY_ID"),
		secretKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		endpoint:  os.Getenv("R2_ENDPOINT"),
	}
	if e.bucket == "" || e.accessKey == "" || e.secretKey == "" || e.endpoint == "" {
		return e, fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}
	return e, nil
}

func NewCloudClient(ctx context.Context) (*R2Client, error) {
	env, err := loadR2Env()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(env.accessKey, env.secretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(env.endpoint)
		o.UsePathStyle = true // R2 does not support virtual-hosted style
	})
	return &R2Client{S3: client, Bucket: env.bucket}, nil
}

// UploadTodoAttachment stores a validated upload under todos/<id>/ and
// returns the attachment record to embed on the todo.
func UploadTodoAttachment(ctx context.Context, r2 *R2Client, todoID string, fileHeader *multipart.FileHeader, contentType string) (*models.TodoAttachment, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == "" {
		ext = ".bin"
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	now := time.Now().UTC()
	objectName := path.Join("todos", todoID,
		fmt.Sprintf("%d-%s%s", now.Unix(), uuid.New(), ext))

	if _, err := r2.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(r2.Bucket),
		Key:          aws.String(objectName),
		Body:         file,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-cache"),
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileHeader.Filename, err)
	}

	return &models.TodoAttachment{
		PublicURL:  publicURL(objectName),
		ObjectName: objectName,
		FileName:   fileHeader.Filename,
		MimeType:   contentType,
		SizeBytes:  fileHeader.Size,
		UploadedAt: now,
	}, nil
}

// DeleteCloudObjects attempts every deletion and returns the first error.
func DeleteCloudObjects(ctx context.Context, r2 *R2Client, objectNames []string) error {
	var firstErr error
	for _, obj := range objectNames {
		if obj == "" {
			continue
		}
		_, err := r2.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r2.Bucket),
			Key:    aws.String(obj),
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

// publicURL builds the public URL for a stored object. R2_PUBLIC_DOMAIN is
// the custom domain or r2.dev URL the bucket is exposed on.
func publicURL(objectName string) string {
	domain := strings.TrimRight(os.Getenv("R2_PUBLIC_DOMAIN"), "/")
	return domain + "/" + os.Getenv("R2_BUCKET") + "/" + objectName
}

// FileValidator gatekeeps uploads: extension allow-list, sniffed MIME
// type, and a size cap, all configured from env.
type FileValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

func NewAttachmentValidator() *FileValidator {
	sizeMB := ParseIntDefault(os.Getenv("MAX_UPLOAD_SIZE_MB"), 5)
	if sizeMB <= 0 {
		sizeMB = 5
	}
	return &FileValidator{
		allowedExt:  envSet("ALLOWED_FILE_EXTENSIONS"),
		allowedMime: envSet("ALLOWED_FILE_MIME_TYPES"),
		maxSize:     int64(sizeMB) << 20,
	}
}

func envSet(key string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(strings.ToLower(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// ValidateFile checks the upload and returns the sniffed content type.
// The MIME check reads the first 512 bytes rather than trusting the
// client-supplied header.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); !v.allowedExt[ext] {
		return "", fmt.Errorf("file extension %q not allowed", ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	head := make([]byte, 512)
	if _, err := file.Read(head); err != nil {
		return "", fmt.Errorf("read file header: %w", err)
	}

	detected := strings.ToLower(http.DetectContentType(head))
	if !v.allowedMime[detected] {
		return "", fmt.Errorf("file type %q not allowed", detected)
	}
	return detected, nil
}
