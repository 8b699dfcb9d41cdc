package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/logging"
)

// ClovaConfig holds the CLOVA OCR general-endpoint credentials
type ClovaConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// ClovaClient calls the CLOVA OCR V2 general endpoint.
type ClovaClient struct {
	config     ClovaConfig
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
	newID      func() string
}

type clovaImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   string `json:"data"`
}

type clovaRequest struct {
	Images     []clovaImage `json:"images"`
	Lang       string       `json:"lang"`
	RequestID  string       `json:"requestId"`
	ResultType string       `json:"resultType"`
	Timestamp  int64        `json:"timestamp"`
	Version    string       `json:"version"`
}

type clovaResponse struct {
	Images []struct {
		InferResult string `json:"inferResult"`
		Message     string `json:"message"`
		Fields      []struct {
			InferText string `json:"inferText"`
		} `json:"fields"`
	} `json:"images"`
}

// NewClovaClient validates the credentials and creates a client
func NewClovaClient(config ClovaConfig) (*ClovaClient, error) {
	if config.URL == "" || config.Secret == "" {
		return nil, fmt.Errorf("%w: CLOVA api_url and x_ocr_secret are required", ErrNotConfigured)
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &ClovaClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logging.NewLogger("OCR"),
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// SetLogger replaces the client's logger
func (c *ClovaClient) SetLogger(logger *logging.Logger) {
	c.logger = logger
}

// Name implements Recognizer
func (c *ClovaClient) Name() string { return BackendClova }

// Recognize implements Recognizer
func (c *ClovaClient) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	jpeg, err := cv.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}

	payload := clovaRequest{
		Images: []clovaImage{{
			Format: "jpg",
			Name:   "ocr_image",
			Data:   base64.StdEncoding.EncodeToString(jpeg),
		}},
		Lang:       "ko",
		RequestID:  c.newID(),
		ResultType: "string",
		Timestamp:  c.now().Unix(),
		Version:    "V2",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.config.Secret)

	c.logger.InfoWithContext("Sending OCR request", map[string]interface{}{
		"request_id": payload.RequestID,
		"bytes":      len(jpeg),
		"size":       img.Bounds().Size().String(),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	tokens, err := ParseClovaResponse(respBody)
	if err != nil {
		return nil, err
	}
	c.logger.InfoWithContext("OCR response parsed", map[string]interface{}{
		"request_id": payload.RequestID,
		"tokens":     len(tokens),
	})
	return tokens, nil
}

// ParseClovaResponse flattens every field of every image, in order.
func ParseClovaResponse(data []byte) ([]string, error) {
	var parsed clovaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ocr response: %w", err)
	}
	if len(parsed.Images) == 0 {
		return nil, ErrEmptyResponse
	}

	var tokens []string
	for _, img := range parsed.Images {
		if img.InferResult != "" && img.InferResult != "SUCCESS" {
			return nil, fmt.Errorf("ocr inference %s: %s", img.InferResult, img.Message)
		}
		for _, field := range img.Fields {
			tokens = append(tokens, field.InferText)
		}
	}
	return tokens, nil
}
