// Package outbox stages at most one outbound attachment and drives the two
// send paths (text-only, attachment with optional caption).
package outbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atendehq/atende/internal/api"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Attachment is a file staged for sending. PreviewPath is non-empty only for
// images; it points at a copy under the profile's preview dir and is removed
// when the attachment is replaced, discarded or sent.
type Attachment struct {
	Kind        api.MediaKind
	Path        string
	PreviewPath string
}

// Staging holds the single pending attachment.
type Staging struct {
	previewDir string
	logger     *zap.Logger

	mu      sync.Mutex
	pending *Attachment
}

// NewStaging creates a staging area with previews stored under previewDir.
func NewStaging(previewDir string, logger *zap.Logger) (*Staging, error) {
	if err := os.MkdirAll(previewDir, 0700); err != nil {
		return nil, err
	}
	return &Staging{previewDir: previewDir, logger: logger}, nil
}

// Stage installs the file at path as the pending attachment, detecting its
// kind from content. Any previously staged attachment's preview resource is
// released before the replacement is installed.
func (s *Staging) Stage(path string) (Attachment, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("stage attachment: %w", err)
	}

	var kind api.MediaKind
	switch {
	case strings.HasPrefix(mtype.String(), "image/"):
		kind = api.MediaImage
	case strings.HasPrefix(mtype.String(), "audio/"):
		kind = api.MediaAudio
	default:
		kind = api.MediaDocument
	}

	var previewPath string
	if kind == api.MediaImage {
		previewPath = filepath.Join(s.previewDir, uuid.New().String()+mtype.Extension())
		if err := copyFile(path, previewPath); err != nil {
			return Attachment{}, fmt.Errorf("stage preview: %w", err)
		}
	}

	att := Attachment{Kind: kind, Path: path, PreviewPath: previewPath}

	s.mu.Lock()
	s.releaseLocked()
	s.pending = &att
	s.mu.Unlock()

	return att, nil
}

// Pending returns the staged attachment, if any.
func (s *Staging) Pending() (Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Attachment{}, false
	}
	return *s.pending, true
}

// Clear discards the staged attachment and releases its preview resource.
func (s *Staging) Clear() {
	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}

// releaseLocked frees the current attachment's preview. Callers hold s.mu;
// the pending pointer is nilled so a preview is never removed twice.
func (s *Staging) releaseLocked() {
	if s.pending == nil {
		return
	}
	if s.pending.PreviewPath != "" {
		if err := os.Remove(s.pending.PreviewPath); err != nil {
			s.logger.Warn("preview release failed",
				zap.String("path", s.pending.PreviewPath), zap.Error(err))
		}
	}
	s.pending = nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
