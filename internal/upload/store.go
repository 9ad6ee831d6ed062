package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/firewatch/suggestionbox/internal/media"
	"github.com/firewatch/suggestionbox/internal/model"
)

// MaxFileSize is the largest attachment accepted, 10 MiB.
const MaxFileSize = 10 << 20

var (
	ErrFileTooLarge        = errors.New("file is too large, maximum 10MB allowed")
	ErrUnsupportedFileType = errors.New("file type not allowed, only PDF, DOC, DOCX, TXT, JPG and PNG are accepted")
	ErrCorruptImage        = errors.New("image could not be decoded")
	ErrStorageWrite        = errors.New("failed to write file")
	ErrInvalidReference    = errors.New("invalid file reference")
)

var allowedTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// maxNameLength caps the sanitized part of a stored file name.
const maxNameLength = 100

// Store writes attachments into a flat directory and hands back a reference
// of the form <urlPrefix>/<stored name>.
type Store struct {
	dir           string
	urlPrefix     string
	stripMetadata bool
	logger        *slog.Logger

	now      func() time.Time
	randHex  func() string
	openFile func(name string) (io.WriteCloser, error)
}

type Option func(*Store)

// WithMetadataStripping re-encodes JPEG and PNG attachments before writing.
func WithMetadataStripping(enabled bool) Option {
	return func(s *Store) { s.stripMetadata = enabled }
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(dir, urlPrefix string, opts ...Option) *Store {
	if dir == "" {
		dir = "./public/uploads"
	}
	s := &Store{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		logger:    slog.Default(),
		now:       time.Now,
		randHex:   randomToken,
	}
	s.openFile = s.createExclusive
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check enforces the size and media type constraints without touching disk.
func Check(att model.Attachment) error {
	if att.Size > MaxFileSize || int64(len(att.Data)) > MaxFileSize {
		return ErrFileTooLarge
	}
	if !allowedTypes[mediaType(att.ContentType)] {
		return ErrUnsupportedFileType
	}
	return nil
}

// mediaType returns the lowercased bare media type of a Content-Type value,
// dropping parameters such as charset.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// SanitizeFilename replaces every character outside [A-Za-z0-9.-] with '_'
// and truncates the result to maxNameLength, keeping a short extension.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" {
		return "attachment"
	}
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}

// Save validates the attachment, writes it in full and returns its reference.
// No reference is returned unless every byte reached disk.
func (s *Store) Save(ctx context.Context, att model.Attachment) (string, error) {
	if err := Check(att); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := att.Data
	if mt := mediaType(att.ContentType); s.stripMetadata && media.IsImage(mt) {
		stripped, err := media.StripMetadata(data, mt)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorruptImage, err)
		}
		data = stripped
	}

	// MkdirAll succeeds when the directory already exists, including when a
	// concurrent request created it first.
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir: %v", ErrStorageWrite, err)
	}

	filename := fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), s.randHex(), SanitizeFilename(att.Filename))
	full := filepath.Join(s.dir, filename)

	if err := s.write(full, data); err != nil {
		s.logger.Error("upload: write failed", "file", filename, "err", err)
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	s.logger.Info("upload: file saved", "file", filename, "bytes", len(data))
	return s.urlPrefix + "/" + filename, nil
}

func (s *Store) write(full string, data []byte) error {
	f, err := s.openFile(full)
	if err != nil {
		return err
	}

	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return err
	}
	return nil
}

// createExclusive refuses to open a file that already exists, so a stored
// attachment can never be overwritten.
func (s *Store) createExclusive(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// Open returns the stored file behind a reference produced by Save.
func (s *Store) Open(_ context.Context, reference string) (io.ReadCloser, error) {
	if !strings.HasPrefix(reference, s.urlPrefix+"/") {
		return nil, ErrInvalidReference
	}
	name := strings.TrimPrefix(reference, s.urlPrefix+"/")
	if name == "" || name == "." || name == ".." || name != path.Base(name) {
		return nil, ErrInvalidReference
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

func randomToken() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
