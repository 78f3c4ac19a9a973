package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/harvest"
	"google.golang.org/genai"
)

const (
	// DefaultImageModel is the Imagen model tried first.
	DefaultImageModel = "imagen-4.0-generate-001"
	// DefaultFallbackModel is the Gemini native image model used when
	// Imagen fails.
	DefaultFallbackModel = "gemini-2.5-flash-image"

	maxTitleLen  = 220
	defaultTheme = "modern office or study workspace, a professional working on a laptop, with subtle role-relevant objects nearby, clean minimal environment"
)

// Models is the subset of *genai.Models the generator calls.
type Models interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ Models = (*genai.Models)(nil)

var _ harvest.ImageGenerator = (*ImageGenerator)(nil)

// ImageGenerator implements harvest.ImageGenerator with Imagen, falling back
// to a Gemini native image model.
type ImageGenerator struct {
	models Models
	themes map[string]string

	Model         string
	FallbackModel string
}

// NewImageGenerator creates an ImageGenerator. themes maps a vertical name to
// the scene its prompts describe.
func NewImageGenerator(models Models, themes map[string]string) *ImageGenerator {
	return &ImageGenerator{
		models:        models,
		themes:        themes,
		Model:         DefaultImageModel,
		FallbackModel: DefaultFallbackModel,
	}
}

// NewClient creates a Gemini API client for apiKey.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "GEMINI_API_KEY (or GOOGLE_API_KEY) not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// GenerateImage produces a square PNG thumbnail for title.
func (g *ImageGenerator) GenerateImage(ctx context.Context, vertical, title string) (*harvest.Image, error) {
	if strings.TrimSpace(title) == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "title required")
	}
	prompt := BuildPrompt(g.theme(vertical), title)

	img, err := g.imagen(ctx, prompt)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if g.FallbackModel == "" {
		return nil, err
	}

	img, ferr := g.native(ctx, prompt)
	if ferr != nil {
		return nil, harvest.Errorf(harvest.EENRICH, "image generation failed: %v; fallback: %v", err, ferr)
	}
	return img, nil
}

func (g *ImageGenerator) theme(vertical string) string {
	if t := g.themes[vertical]; t != "" {
		return t
	}
	return defaultTheme
}

func (g *ImageGenerator) imagen(ctx context.Context, prompt string) (*harvest.Image, error) {
	resp, err := g.models.GenerateImages(ctx, g.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      "1:1",
		PersonGeneration: genai.PersonGenerationDontAllow,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, harvest.Errorf(harvest.EENRICH, "%s returned no images", g.Model)
	}
	out := resp.GeneratedImages[0].Image
	if out == nil || len(out.ImageBytes) == 0 {
		return nil, harvest.Errorf(harvest.EENRICH, "%s returned an empty image", g.Model)
	}
	return &harvest.Image{MIMEType: mimeType(out.MIMEType), Data: out.ImageBytes}, nil
}

func (g *ImageGenerator) native(ctx context.Context, prompt string) (*harvest.Image, error) {
	resp, err := g.models.GenerateContent(ctx, g.FallbackModel,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, harvest.Errorf(harvest.EENRICH, "%s returned nil result", g.FallbackModel)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return &harvest.Image{MIMEType: mimeType(p.InlineData.MIMEType), Data: p.InlineData.Data}, nil
			}
		}
	}
	return nil, harvest.Errorf(harvest.EENRICH, "no image bytes found in %s response", g.FallbackModel)
}

func mimeType(s string) string {
	if s == "" {
		return "image/png"
	}
	return s
}

// BuildPrompt builds the thumbnail prompt for a title in the given scene.
func BuildPrompt(theme, title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}

	var sb strings.Builder
	sb.WriteString("Photorealistic lifestyle photo for a jobs & courses recommendation app thumbnail. ")
	fmt.Fprintf(&sb, "Subject/theme: %s. ", title)
	fmt.Fprintf(&sb, "Scene: %s. ", theme)
	sb.WriteString("Look: natural lighting, neutral white balance, true-to-life colors, NO color filter, NO tint, NO heavy color grading. ")
	sb.WriteString("Composition: square 1:1, centered subject, shallow depth of field, softly blurred background, high quality, crisp details. ")
	sb.WriteString("AVOID: text, words, letters, captions, UI overlay, icons, watermark, logo, badge, location pin, pink/red tint, gradient overlay, heavy color grading, posterized, cartoon, illustration.")
	return sb.String()
}
