package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.ImagePublisher = (*ImagePublisher)(nil)

// ImagePublisher is a mock implementation of harvest.ImagePublisher.
type ImagePublisher struct {
	GenerateAndUploadFn func(ctx context.Context, id harvest.Identity, title string) (string, error)
}

func (p *ImagePublisher) GenerateAndUpload(ctx context.Context, id harvest.Identity, title string) (string, error) {
	return p.GenerateAndUploadFn(ctx, id, title)
}

var _ harvest.ImageGenerator = (*ImageGenerator)(nil)

// ImageGenerator is a mock implementation of harvest.ImageGenerator.
type ImageGenerator struct {
	GenerateImageFn func(ctx context.Context, vertical, title string) (*harvest.Image, error)
}

func (g *ImageGenerator) GenerateImage(ctx context.Context, vertical, title string) (*harvest.Image, error) {
	return g.GenerateImageFn(ctx, vertical, title)
}

var _ harvest.ImageUploader = (*ImageUploader)(nil)

// ImageUploader is a mock implementation of harvest.ImageUploader.
type ImageUploader struct {
	UploadImageFn func(ctx context.Context, id harvest.Identity, img *harvest.Image) (string, error)
}

func (u *ImageUploader) UploadImage(ctx context.Context, id harvest.Identity, img *harvest.Image) (string, error) {
	return u.UploadImageFn(ctx, id, img)
}
