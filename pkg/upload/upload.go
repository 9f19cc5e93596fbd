package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Staging errors.
var (
	// ErrNotFound is returned when a staged file does not exist or was
	// already claimed.
	ErrNotFound = errors.New("upload: file not found")

	// ErrTooLarge is returned when a file exceeds the size limit.
	ErrTooLarge = errors.New("upload: file too large")
)

// Meta describes an uploaded file as the client declared it. Stores may
// correct Size after reading the actual bytes.
type Meta struct {
	Filename    string
	ContentType string
	Size        int64
}

// Store stages uploaded files between the upload request and the action
// that claims them. Files are claim-once: a successful Claim consumes the
// staged copy.
type Store interface {
	// Save stages a file and returns its ID.
	Save(ctx context.Context, meta Meta, r io.Reader) (string, error)

	// Claim retrieves and consumes a staged file.
	Claim(ctx context.Context, id string) (*File, error)

	// Cleanup removes staged files older than maxAge. Run it periodically;
	// unclaimed files otherwise live forever.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is a claimed upload.
type File struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64

	// Path is the local filesystem location (disk store).
	Path string

	// URL is a time-limited direct-access URL (S3 store).
	URL string

	// Reader streams the file contents. Close it when done; the disk store
	// removes the staged copy on close.
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Options configures the upload handler.
type Options struct {
	// MaxFileSize caps the request body. Default 10MB.
	MaxFileSize int64

	// AllowedTypes restricts the declared content type. Empty allows all.
	AllowedTypes []string

	// Field is the multipart field name. Default "file".
	Field string

	// Logger receives store failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithMaxFileSize caps the accepted file size.
func WithMaxFileSize(n int64) Option {
	return func(o *Options) { o.MaxFileSize = n }
}

// WithAllowedTypes restricts accepted content types.
func WithAllowedTypes(types ...string) Option {
	return func(o *Options) { o.AllowedTypes = types }
}

// WithField sets the multipart field name.
func WithField(name string) Option {
	return func(o *Options) { o.Field = name }
}

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Handler accepts multipart uploads and stages them in the store. Mount
// it with server.WithUploads(upload.Handler(store)).
//
// The response carries the staged ID for the follow-up action to claim:
//
//	{"id": "6f1c...", "filename": "report.pdf", "size": 48213}
func Handler(store Store, opts ...Option) http.Handler {
	o := Options{
		MaxFileSize: 10 << 20,
		Field:       "file",
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		// SECURITY: cap the body before parsing anything.
		r.Body = http.MaxBytesReader(w, r.Body, o.MaxFileSize)

		if err := r.ParseMultipartForm(4 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "malformed multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile(o.Field)
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !typeAllowed(o.AllowedTypes, contentType) {
			http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
			return
		}

		id, err := store.Save(r.Context(), Meta{
			Filename:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
		}, file)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			o.Logger.Error("staging upload failed",
				slog.String("filename", header.Filename),
				slog.Any("error", err))
			http.Error(w, "upload failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]any{
			"id":       id,
			"filename": header.Filename,
			"size":     header.Size,
		})
	})
}

func typeAllowed(allowed []string, contentType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == contentType {
			return true
		}
	}
	return false
}
