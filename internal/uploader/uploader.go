// Package uploader streams intake attachments into the object store and tracks
// each transfer as a Task.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"

	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
	"habilitaciones/internal/storage"
)

// MaxFileSize is the largest attachment accepted, 10 MiB.
const MaxFileSize = 10 << 20

// KeyPrefix is the object key prefix every attachment is stored under.
const KeyPrefix = "files/"

// uploadIDMeta is the object metadata entry naming the upload that last wrote
// the object.
const uploadIDMeta = "upload-id"

var (
	ErrFileTooLarge = errors.New("file exceeds the 10MB limit")
	ErrEmptyName    = errors.New("file name is required")
)

// Category infers the document category from the slot id.
func Category(slotID string) string {
	s := strings.ToLower(slotID)
	switch {
	case strings.Contains(s, "dni"):
		return "DNI"
	case strings.Contains(s, "estatuto"):
		return "Estatuto"
	case strings.Contains(s, "propiedad"):
		return "Propiedad"
	case strings.Contains(s, "inscripcion"):
		return "Inscripcion"
	default:
		return "Otro"
	}
}

// RenamedName is the stored file name: "<Category>_<original base name>".
func RenamedName(slotID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return Category(slotID) + "_" + base
}

// ObjectKey returns the storage key for a renamed file.
func ObjectKey(renamed string) string {
	return KeyPrefix + renamed
}

// Uploader is safe for concurrent use.
type Uploader struct {
	store   storage.Storage
	baseURL string
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New returns an Uploader whose links are rooted at baseURL, e.g. "https://host".
func New(store storage.Storage, baseURL string, log *logging.Logger, m *metrics.Metrics) *Uploader {
	return &Uploader{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("uploader"),
		metrics: m,
	}
}

// URLFor is the retrievable link recorded for a stored file.
func (u *Uploader) URLFor(renamed string) string {
	return u.baseURL + "/" + KeyPrefix + url.PathEscape(renamed)
}

// Start begins an asynchronous upload of r into the slot's category. The
// transfer outlives ctx's cancellation but keeps its values; use Task.Cancel to
// abort it. size may be -1 when unknown, in which case progress jumps to 100
// on completion.
func (u *Uploader) Start(ctx context.Context, slotID, name string, r io.Reader, size int64, contentType string) (*Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if size > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	renamed := RenamedName(slotID, name)
	t := newTask(slotID, name, renamed, Category(slotID))

	upCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel

	go u.run(upCtx, t, r, size, contentType)
	return t, nil
}

func (u *Uploader) run(ctx context.Context, t *Task, r io.Reader, size int64, contentType string) {
	defer t.cancel()

	_, err := u.store.Put(ctx, t.Key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": t.OriginalName, uploadIDMeta: t.ID},
		Progress:    &progressReader{task: t, total: size},
	})
	if err != nil {
		u.metrics.Upload(t.Category, metrics.ResultError)
		u.log.Error("upload", err, map[string]any{"key": t.Key, "slot": t.Slot})
		t.finish("", fmt.Errorf("upload %s: %w", t.Name, err))
		return
	}

	u.metrics.Upload(t.Category, metrics.ResultSuccess)
	u.log.Info("upload", map[string]any{"key": t.Key, "slot": t.Slot, "size": size})
	t.finish(u.URLFor(t.Name), nil)
}

// Remove deletes a stored attachment. A missing object counts as removed.
// With a non-empty uploadID the object is only deleted while that upload is
// still the last writer: two applicants sending the same file name share the
// key, and one of them withdrawing must not delete the other's copy. Other
// failures are logged and returned for information only: callers drop their
// local reference either way.
func (u *Uploader) Remove(ctx context.Context, key, uploadID string) error {
	info, err := u.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			u.log.Info("attachment_remove", map[string]any{"key": key, "msg": "object already absent"})
			return nil
		}
		u.log.Error("attachment_remove", err, map[string]any{"key": key, "step": "stat"})
		return err
	}
	if owner := metaValue(info.Metadata, uploadIDMeta); uploadID != "" && owner != "" && owner != uploadID {
		u.log.Info("attachment_remove", map[string]any{"key": key, "msg": "object rewritten by another upload, kept"})
		return nil
	}
	if err := u.store.Delete(ctx, key); err != nil {
		u.log.Error("attachment_remove", err, map[string]any{"key": key, "step": "delete"})
		return err
	}
	u.log.Info("attachment_remove", map[string]any{"key": key})
	return nil
}

// metaValue looks name up ignoring case; S3 backends return user metadata
// keys in canonical header form.
func metaValue(meta map[string]string, name string) string {
	for k, v := range meta {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// progressReader is handed to the storage client, which reads from it as many
// bytes as it has sent.
type progressReader struct {
	task  *Task
	total int64
	mu    sync.Mutex
	sent  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.sent += int64(len(b))
	sent := p.sent
	p.mu.Unlock()

	if p.total > 0 {
		pct := int(sent * 100 / p.total)
		if pct > 99 {
			// 100 is reserved for a finished task.
			pct = 99
		}
		p.task.report(pct)
	}
	return len(b), nil
}
