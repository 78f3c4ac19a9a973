package harvest

import "context"

// Identity names the entity an image belongs to.
type Identity struct {
	Vertical string
	Ref      string
}

// Image is generated image content.
type Image struct {
	MIMEType string
	Data     []byte
}

// ImagePublisher produces a thumbnail for an entity and returns its public
// URL. Failures never affect the entity's ingestion status.
type ImagePublisher interface {
	GenerateAndUpload(ctx context.Context, id Identity, title string) (url string, err error)
}

// ImageGenerator produces image content for a title.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, vertical, title string) (*Image, error)
}

// ImageUploader stores image content and returns a stable public URL.
// Uploading twice for the same identity overwrites the earlier image.
type ImageUploader interface {
	UploadImage(ctx context.Context, id Identity, img *Image) (url string, err error)
}
