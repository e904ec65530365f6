// Package backup uploads encrypted snapshots of the SQLite database to
// S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/selpix/selpix/internal/database"
	"github.com/selpix/selpix/internal/query"
)

var (
	ErrNotConfigured = errors.New("backup not configured")
	ErrUnsupported   = errors.New("backups need a sqlite database")
	ErrInProgress    = errors.New("backup already running")
	ErrNotFound      = errors.New("backup not found")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3         S3Config
	Passphrase string
	// Prefix is prepended to every object key.
	Prefix    string
	Interval  time.Duration
	Retention time.Duration
}

func (c Config) complete() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != "" && c.Passphrase != ""
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
	LastKey    string     `json:"lastKey,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"inProgress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Object is one stored snapshot.
type Object struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager takes scheduled and on-demand snapshots.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db     *database.DB
	client s3Client
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager returns a disabled manager unless the bucket, credentials and
// passphrase are all set.
func NewManager(cfg Config, db *database.DB, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	if cfg.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Configured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start runs a backup and a retention sweep every interval until Stop is
// called or ctx ends. It does nothing when the manager is disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if n, err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				} else if n > 0 {
					m.logger.Info("old backups removed", "count", n)
				}
			}
		}
	}()
}

// Stop gracefully stops the schedule.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// begin marks a backup as running, refusing to start a second one.
func (m *Manager) begin() (s3Client, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, Status{}, ErrNotConfigured
	}
	if m.db.Dialect != query.SQLite {
		return nil, Status{}, ErrUnsupported
	}
	if m.status.InProgress {
		return nil, Status{}, ErrInProgress
	}
	prev := m.status
	m.status = Status{State: StateRunning, InProgress: true, LastBackup: prev.LastBackup, LastKey: prev.LastKey}
	return m.client, prev, nil
}

// RunNow snapshots, encrypts and uploads the database.
func (m *Manager) RunNow(ctx context.Context) (*Object, error) {
	client, prev, err := m.begin()
	if err != nil {
		return nil, err
	}
	if m.callback != nil {
		m.callback(m.Status())
	}

	obj, err := m.upload(ctx, client)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error(), LastBackup: prev.LastBackup, LastKey: prev.LastKey})
		return nil, err
	}

	m.setStatus(Status{State: StateIdle, LastBackup: &obj.CreatedAt, LastKey: obj.Key})
	m.logger.Info("backup uploaded", "key", obj.Key, "size", obj.Size)
	return obj, nil
}

func (m *Manager) upload(ctx context.Context, client s3Client) (*Object, error) {
	snap, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	enc, err := Encrypt(snap, m.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	created := m.now().UTC()
	key := m.cfg.Prefix + "selpix-" + created.Format("2006-01-02T150405.000Z") + ".db.enc"
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}
	return &Object{Key: key, Size: int64(len(enc)), CreatedAt: created}, nil
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "selpix-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns the stored snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Object, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	var objs []Object
	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Prefix: aws.String(m.cfg.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			if !strings.HasSuffix(key, ".db.enc") {
				continue
			}
			objs = append(objs, Object{Key: key, Size: aws.ToInt64(o.Size), CreatedAt: aws.ToTime(o.LastModified)})
		}
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].CreatedAt.After(objs[j].CreatedAt) })
	return objs, nil
}

// Open streams an encrypted snapshot.
func (m *Manager) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, 0, ErrNotConfigured
	}
	if !strings.HasPrefix(key, m.cfg.Prefix) {
		return nil, 0, ErrNotFound
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Restore downloads and decrypts a snapshot, checks its integrity and
// writes it to dst. The live database is not touched; the service must be
// restarted against dst.
func (m *Manager) Restore(ctx context.Context, key, dst string) error {
	body, _, err := m.Open(ctx, key)
	if err != nil {
		return err
	}
	enc, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(enc, m.cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restore"
	if err := os.WriteFile(tmp, plain, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := checkIntegrity(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes snapshots older than the retention period and reports
// how many were removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.cfg.Retention <= 0 {
		return 0, nil
	}
	objs, err := m.List(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	before := m.now().UTC().Add(-m.cfg.Retention)
	removed := 0
	for _, o := range objs {
		if !o.CreatedAt.Before(before) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(o.Key),
		}); err != nil {
			m.logger.Warn("delete old backup", "key", o.Key, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
