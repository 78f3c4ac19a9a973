// Package fs stores generated entity images on the local file system.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/harvest"
)

var _ harvest.ImageUploader = (*ImageStore)(nil)

// ImageStore writes images to dir/<vertical>/<ref>.png and serves them under
// baseURL with the same relative path. Uploading again for an identity
// replaces the file, so the URL never changes.
type ImageStore struct {
	dir     string
	baseURL string
}

// NewImageStore creates an ImageStore rooted at dir. A trailing slash on
// baseURL is ignored.
func NewImageStore(dir, baseURL string) *ImageStore {
	return &ImageStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// UploadImage implements harvest.ImageUploader.
func (s *ImageStore) UploadImage(ctx context.Context, id harvest.Identity, img *harvest.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", harvest.Errorf(harvest.EINVALID, "image data required")
	}
	rel, err := RelPath(id)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", harvest.WrapError(harvest.EINTERNAL, err, "create image directory")
	}

	// Write beside the target and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", harvest.WrapError(harvest.EINTERNAL, err, "create temp image")
	}
	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", harvest.WrapError(harvest.EINTERNAL, err, "write image %s", rel)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", harvest.WrapError(harvest.EINTERNAL, err, "write image %s", rel)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", harvest.WrapError(harvest.EINTERNAL, err, "write image %s", rel)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", harvest.WrapError(harvest.EINTERNAL, err, "write image %s", rel)
	}

	return s.url(rel), nil
}

func (s *ImageStore) url(rel string) string {
	if s.baseURL == "" {
		return rel
	}
	return s.baseURL + "/" + rel
}

// RelPath returns the slash-separated path of an identity's image,
// e.g. jobs/123.png. Refs that would escape the vertical directory are
// rejected.
func RelPath(id harvest.Identity) (string, error) {
	for _, part := range []string{id.Vertical, id.Ref} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", harvest.Errorf(harvest.EINVALID, "invalid image identity %q/%q", id.Vertical, id.Ref)
		}
	}
	return id.Vertical + "/" + id.Ref + ".png", nil
}
