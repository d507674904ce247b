// Package remote mirrors a shared S3 album into the photo library
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mapset "github.com/deckarep/golang-set/v2"

	"inkframe/store"
	"inkframe/util"
)

const syncCheckInterval = time.Hour

// Manager keeps the library in sync with a shared album bucket. New objects
// are downloaded; objects that disappear remotely are removed locally, but
// only if a previous sync brought them in, so user uploads are never touched.
type Manager struct {
	client *s3.Client
	bucket string
	prefix string
	photos *store.PhotoStore

	tracked mapset.Set[string]
}

func NewManager(bucket, profile, prefix string, photos *store.PhotoStore) (*Manager, error) {
	if bucket == "" {
		return nil, errors.New("no s3 bucket provided")
	}

	// Load the shared AWS configuration (~/.aws/config)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %w", err)
	}

	return &Manager{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		prefix:  prefix,
		photos:  photos,
		tracked: mapset.NewSet[string](),
	}, nil
}

// Run blocks, syncing once immediately and then hourly.
func (m *Manager) Run() {
	ticker := time.NewTicker(syncCheckInterval)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	if err := m.Sync(ctx); err != nil {
		slog.Warn("error while syncing with album bucket", "error", err)
	}
	cancel()

	for range ticker.C {
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Minute)
		if err := m.Sync(ctx); err != nil {
			slog.Warn("error while syncing with album bucket", "error", err)
		}
		cancel()
	}
}

// Sync reconciles the library against the current bucket listing.
func (m *Manager) Sync(ctx context.Context) error {
	output, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(m.prefix),
	})
	if err != nil {
		return fmt.Errorf("unable to list bucket %s, %w", m.bucket, err)
	}

	remote := mapset.NewSet[string]()
	keysByName := make(map[string]string)
	for _, object := range output.Contents {
		key := aws.ToString(object.Key)
		name := ObjectName(key)
		if name == "" {
			continue
		}
		remote.Add(name)
		keysByName[name] = key
	}

	local, err := m.localNames()
	if err != nil {
		return err
	}

	toDownload := remote.Difference(local).ToSlice()
	toDelete := m.tracked.Difference(remote).ToSlice()

	if len(toDownload) > 0 {
		slog.Info("downloading album photos", "count", len(toDownload), "names", toDownload)
		downloader := manager.NewDownloader(m.client)
		for _, name := range toDownload {
			if err := m.download(ctx, downloader, keysByName[name], name); err != nil {
				slog.Warn("error while downloading album photo", "name", name, "error", err)
			}
		}
	}

	if len(toDelete) > 0 {
		slog.Info("removing album photos no longer in bucket", "count", len(toDelete), "names", toDelete)
		for _, name := range toDelete {
			if !local.Contains(name) {
				continue
			}
			if err := m.photos.Delete(name); err != nil {
				slog.Warn("unable to remove album photo", "name", name, "error", err)
			}
		}
	}

	m.tracked = remote
	return nil
}

func (m *Manager) download(ctx context.Context, downloader *manager.Downloader, key, name string) error {
	buf := manager.NewWriteAtBuffer([]byte{})
	if _, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("unable to download object from s3, %s, %w", key, err)
	}

	if _, err := m.photos.Import(name, buf.Bytes()); err != nil {
		return fmt.Errorf("unable to store album photo, %s, %w", name, err)
	}
	return nil
}

func (m *Manager) localNames() (mapset.Set[string], error) {
	photos, err := m.photos.List()
	if err != nil {
		return nil, err
	}
	names := mapset.NewSet[string]()
	for _, p := range photos {
		names.Add(p.Name)
	}
	return names, nil
}

// ObjectName turns a bucket key into a library filename. Keys with unusable
// names or unsupported extensions map to the empty string and are skipped.
func ObjectName(key string) string {
	name := util.SanitizeFilename(path.Base(key))
	if name == "" || !util.SupportedExt.Contains(filepath.Ext(name)) {
		return ""
	}
	return name
}
