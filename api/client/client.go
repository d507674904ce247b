// Package client is a small typed client for the frame's web api
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"inkframe/api/models"
	"inkframe/store"
)

type FrameClient struct {
	baseURL string
	client  *http.Client
}

func NewFrameClient(baseURL string) *FrameClient {
	return &FrameClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// ListPhotos retrieves the photo library, newest first.
func (fc *FrameClient) ListPhotos() ([]store.PhotoRef, error) {
	var resp models.PhotoListResponse
	if err := fc.do(http.MethodGet, "/api/photos", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

// Upload stores a new photo and returns its library name.
func (fc *FrameClient) Upload(filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart form: %w", err)
	}

	var resp models.UploadResponse
	if err := fc.do(http.MethodPost, "/api/photos/upload", &body, mw.FormDataContentType(), &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

// DeletePhoto removes a photo and its original.
func (fc *FrameClient) DeletePhoto(name string) error {
	return fc.do(http.MethodDelete, "/api/photos/"+url.PathEscape(name), nil, "", nil)
}

// Display pushes a photo to the panel immediately. The returned flag reports
// whether the hardware accepted it.
func (fc *FrameClient) Display(name string) (bool, error) {
	var resp models.DisplayResponse
	if err := fc.do(http.MethodPost, "/api/display/"+url.PathEscape(name), nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// GetConfig fetches the current configuration document.
func (fc *FrameClient) GetConfig() (store.DisplayConfig, error) {
	var cfg store.DisplayConfig
	if err := fc.do(http.MethodGet, "/api/config", nil, "", &cfg); err != nil {
		return store.DisplayConfig{}, err
	}
	return cfg, nil
}

// UpdateConfig applies a partial configuration update and returns the
// resulting document.
func (fc *FrameClient) UpdateConfig(req models.UpdateConfigRequest) (store.DisplayConfig, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return store.DisplayConfig{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	var cfg store.DisplayConfig
	if err := fc.do(http.MethodPost, "/api/config", bytes.NewReader(data), "application/json", &cfg); err != nil {
		return store.DisplayConfig{}, err
	}
	return cfg, nil
}

// UpdateWidget replaces the stored config for one widget type.
func (fc *FrameClient) UpdateWidget(widgetType string, cfg json.RawMessage) error {
	return fc.do(http.MethodPost, "/api/widgets/"+url.PathEscape(widgetType), bytes.NewReader(cfg), "application/json", nil)
}

// Status reports scheduler liveness, display availability and library size.
func (fc *FrameClient) Status() (models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := fc.do(http.MethodGet, "/api/status", nil, "", &resp); err != nil {
		return models.StatusResponse{}, err
	}
	return resp, nil
}

func (fc *FrameClient) do(method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequest(method, fc.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := fc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp models.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
