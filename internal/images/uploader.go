// Package images is the external image-host collaborator. The pipeline only
// depends on the Uploader interface; the HTTP implementation targets a
// Cloudinary-style upload endpoint.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// UploadResult is the hosted image reference stored on entities.
type UploadResult struct {
	PublicID string `json:"public_id"`
	Version  string `json:"version"`
}

type Uploader interface {
	// Upload sends a base64 image payload. publicID pins the hosted name;
	// empty lets the host assign one.
	Upload(ctx context.Context, image, publicID string) (UploadResult, error)
}

// HTTPUploader posts to the configured upload endpoint.
type HTTPUploader struct {
	apiURL string
	client *http.Client
}

func NewHTTPUploader(apiURL string) *HTTPUploader {
	return &HTTPUploader{
		apiURL: apiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadRequest struct {
	File       string `json:"file"`
	PublicID   string `json:"public_id,omitempty"`
	Overwrite  bool   `json:"overwrite"`
	Invalidate bool   `json:"invalidate"`
}

type uploadResponse struct {
	PublicID string          `json:"public_id"`
	Version  json.RawMessage `json:"version"`
	Message  string          `json:"message"`
}

func (u *HTTPUploader) Upload(ctx context.Context, image, publicID string) (UploadResult, error) {
	body, err := json.Marshal(uploadRequest{File: image, PublicID: publicID, Overwrite: true, Invalidate: true})
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "encode upload request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL, bytes.NewReader(body))
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "upload image")
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, errors.Wrap(err, "decode upload response")
	}
	if out.PublicID == "" {
		msg := out.Message
		if msg == "" {
			msg = "File upload error"
		}
		return UploadResult{}, errors.New(msg)
	}
	// version arrives as either a number or a string depending on the host
	version := string(bytes.Trim(out.Version, `"`))
	return UploadResult{PublicID: out.PublicID, Version: version}, nil
}

// PictureURL builds the public URL for a hosted image.
func PictureURL(cloudName, version, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/v%s/%s", cloudName, version, publicID)
}
