package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions maps each accepted attachment extension to its
// display category.
var allowedExtensions = map[string]string{
	"png":  "image",
	"jpg":  "image",
	"jpeg": "image",
	"gif":  "image",
	"mp3":  "audio",
	"wav":  "audio",
	"pdf":  "doc",
	"docx": "doc",
	"txt":  "doc",
}

// saveAttachment stores an uploaded chat file under the upload tree and
// returns its public URL and category. A disallowed extension returns
// empty values without error: the message still goes through, only the
// file is dropped.
func saveAttachment(slug string, fh *multipart.FileHeader) (fileURL, fileType string, err error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	kind, ok := allowedExtensions[ext]
	if !ok {
		return "", "", nil
	}

	dir := filepath.Join(cfg.Storage.UploadDir, "chat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", slug, uuid.New().String(), sanitizeFilename(fh.Filename))

	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	return "/static/uploads/chat/" + name, kind, nil
}

// sanitizeFilename keeps a client-supplied filename safe to place on
// disk: path separators and anything exotic become underscores.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
