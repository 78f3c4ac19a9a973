package gemini

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.ImagePublisher = (*Publisher)(nil)

// Publisher generates a thumbnail and hands it to an uploader.
type Publisher struct {
	Generator harvest.ImageGenerator
	Uploader  harvest.ImageUploader
}

// NewPublisher creates a Publisher.
func NewPublisher(gen harvest.ImageGenerator, up harvest.ImageUploader) *Publisher {
	return &Publisher{Generator: gen, Uploader: up}
}

// GenerateAndUpload implements harvest.ImagePublisher.
func (p *Publisher) GenerateAndUpload(ctx context.Context, id harvest.Identity, title string) (string, error) {
	if id.Vertical == "" || id.Ref == "" {
		return "", harvest.Errorf(harvest.EINVALID, "vertical and ref required")
	}

	img, err := p.Generator.GenerateImage(ctx, id.Vertical, title)
	if err != nil {
		return "", harvest.WrapError(harvest.EENRICH, err, "generate image for %s/%s", id.Vertical, id.Ref)
	}

	url, err := p.Uploader.UploadImage(ctx, id, img)
	if err != nil {
		return "", harvest.WrapError(harvest.EENRICH, err, "upload image for %s/%s", id.Vertical, id.Ref)
	}
	return url, nil
}
