package providers

import (
	"context"
	"encoding/base64"

	"github.com/IsPHao/storyreel/pkg/config"
	"github.com/IsPHao/storyreel/pkg/errdefs"
)

const imageService = "image"

// ImageGenerator is the renderer's view of the image provider.
type ImageGenerator interface {
	// Generate produces raw image bytes for a prompt. The optional
	// reference image conditions the generation when non-nil.
	Generate(ctx context.Context, prompt string, reference []byte) ([]byte, error)
}

// ImageClient calls the image generation endpoint. Responses carry the
// image as a base64 blob inside a JSON envelope.
type ImageClient struct {
	http  *httpClient
	model string
	size  string
}

// NewImageClient creates an image provider client.
func NewImageClient(cfg *config.ProvidersConfig) *ImageClient {
	return &ImageClient{
		http:  newHTTPClient(cfg),
		model: cfg.ImageModel,
		size:  cfg.ImageSize,
	}
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	Image  string `json:"image,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate implements ImageGenerator.
func (c *ImageClient) Generate(ctx context.Context, prompt string, reference []byte) ([]byte, error) {
	req := imageRequest{
		Model:  c.model,
		Prompt: prompt,
		Size:   c.size,
	}
	if len(reference) > 0 {
		req.Image = base64.StdEncoding.EncodeToString(reference)
	}

	var resp imageResponse
	if err := c.http.postJSON(ctx, imageService, "/v1/images/generations", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &errdefs.GenerationError{Message: "image response contains no image data"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &errdefs.ParseError{Service: imageService, Err: err}
	}
	return data, nil
}
