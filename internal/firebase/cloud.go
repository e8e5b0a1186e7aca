// Package firebase uploads grade snapshots to Firebase Cloud Storage and
// lists the ones already there.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	goStorage "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/storage"
	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const snapshotTimeLayout = "20060102T150405Z"

// ErrNotConfigured is returned when no credentials file was provided.
var ErrNotConfigured = errors.New("firebase is not configured")

// Backup describes one uploaded snapshot object.
type Backup struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}

// objectStore is the part of a Cloud Storage bucket that backups use.
type objectStore interface {
	Write(ctx context.Context, name string, data []byte, attrs objectAttrs) error
	List(ctx context.Context, prefix string) ([]Backup, error)
}

type objectAttrs struct {
	ContentType string
	Metadata    map[string]string
}

// bucketStore adapts a Cloud Storage bucket handle to objectStore.
type bucketStore struct {
	*goStorage.BucketHandle
}

func (b bucketStore) Write(ctx context.Context, name string, data []byte, attrs objectAttrs) error {
	writer := b.Object(name).NewWriter(ctx)
	writer.ObjectAttrs.ContentType = attrs.ContentType
	writer.ObjectAttrs.Metadata = attrs.Metadata

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to upload file data: %w", err)
	}
	// The object is only committed on Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %s: %w", name, err)
	}
	return nil
}

func (b bucketStore) List(ctx context.Context, prefix string) ([]Backup, error) {
	objects := b.Objects(ctx, &goStorage.Query{
		Prefix: prefix,
	})

	var out []Backup
	for {
		object, err := objects.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate objects: %w", err)
		}
		out = append(out, Backup{
			Name:    object.Name,
			Size:    object.Size,
			Updated: object.Updated,
		})
	}
	return out, nil
}

// CloudStorage uploads and lists grade snapshots in one bucket.
type CloudStorage struct {
	objects objectStore
	prefix  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewApp initializes a Firebase app from a service account file. An empty
// bucket falls back to the project's default bucket.
func NewApp(ctx context.Context, credentialsFile, bucket string) (*firebase.App, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, ErrNotConfigured
	}

	var conf *firebase.Config
	if bucket != "" {
		conf = &firebase.Config{StorageBucket: bucket}
	}

	sa := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, conf, sa)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// NewCloudStorage opens the named bucket, or the app's default bucket when
// bucket is empty, and stores snapshots under prefix.
func NewCloudStorage(ctx context.Context, app *firebase.App, bucket, prefix string, logger *zap.Logger) (*CloudStorage, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := bucketHandle(client, bucket)
	if err != nil {
		return nil, err
	}

	return newCloudStorage(bucketStore{handle}, prefix, logger), nil
}

func newCloudStorage(objects objectStore, prefix string, logger *zap.Logger) *CloudStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudStorage{
		objects: objects,
		prefix:  prefix,
		logger:  logger,
		now:     time.Now,
	}
}

func bucketHandle(client *storage.Client, bucket string) (*goStorage.BucketHandle, error) {
	if bucket == "" {
		handle, err := client.DefaultBucket()
		if err != nil {
			return nil, fmt.Errorf("failed to get default storage bucket: %w", err)
		}
		return handle, nil
	}

	handle, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage bucket '%s': %w", bucket, err)
	}
	return handle, nil
}

// UploadSnapshot writes the collection as JSON under the backup prefix and
// returns the object name.
func (s *CloudStorage) UploadSnapshot(ctx context.Context, snapshot types.Collection) (string, error) {
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return "", err
	}

	name := ObjectName(s.prefix, s.now())
	if err := s.UploadFile(ctx, name, data); err != nil {
		return "", err
	}

	s.logger.Info("uploaded grades snapshot",
		zap.String("object", name),
		zap.Int("grades", len(snapshot.Grades)),
		zap.Int("bytes", len(data)),
	)
	return name, nil
}

// UploadFile stores data as a JSON object at path with a fresh download
// token.
func (s *CloudStorage) UploadFile(ctx context.Context, path string, data []byte) error {
	if err := validateUpload(path, data); err != nil {
		return fmt.Errorf("upload validation failed: %w", err)
	}

	return s.objects.Write(ctx, path, data, objectAttrs{
		ContentType: "application/json",
		Metadata: map[string]string{
			"firebaseStorageDownloadTokens": uuid.New().String(),
		},
	})
}

// ListBackups returns the snapshots under the backup prefix, newest first.
func (s *CloudStorage) ListBackups(ctx context.Context) ([]Backup, error) {
	objects, err := s.objects.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var backups []Backup
	for _, object := range objects {
		// Skip directories (objects ending with '/')
		if strings.HasSuffix(object.Name, "/") {
			continue
		}
		backups = append(backups, object)
	}

	sortNewestFirst(backups)
	return backups, nil
}

// ObjectName is the object path of a snapshot taken at the given instant.
func ObjectName(prefix string, at time.Time) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + "grades-" + at.UTC().Format(snapshotTimeLayout) + ".json"
}

// EncodeSnapshot renders a collection in the same layout as the grades file.
func EncodeSnapshot(snapshot types.Collection) ([]byte, error) {
	if snapshot.Grades == nil {
		snapshot.Grades = []types.Grade{}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func sortNewestFirst(backups []Backup) {
	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].Updated.Equal(backups[j].Updated) {
			return backups[i].Updated.After(backups[j].Updated)
		}
		return backups[i].Name > backups[j].Name
	})
}

// validateUpload performs input validation for file uploads
func validateUpload(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if len(data) == 0 {
		return fmt.Errorf("file data cannot be empty")
	}

	if strings.Contains(path, "..") || strings.Contains(path, "//") {
		return fmt.Errorf("invalid file path: contains unsafe characters")
	}

	return nil
}
