package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	predictPath = "/api/predict"
	imageField  = "ultrasound_image"
)

var ErrUnexpectedStatus = errors.New("prediction service returned unexpected status")

type Prediction struct {
	Percentage string `json:"percentage"`
	Result     string `json:"result"`
}

// UnmarshalJSON accepts the percentage either as a string or as a number.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Percentage json.RawMessage `json:"percentage"`
		Result     string          `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Result = raw.Result
	p.Percentage = ""
	if len(raw.Percentage) == 0 || string(raw.Percentage) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Percentage, &s); err == nil {
		p.Percentage = s
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw.Percentage, &f); err != nil {
		return fmt.Errorf("percentage: %w", err)
	}
	p.Percentage = strconv.FormatFloat(f, 'f', -1, 64)
	return nil
}

type Predictor interface {
	Predict(ctx context.Context, filename string, image []byte) (*Prediction, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) Predict(ctx context.Context, filename string, image []byte) (*Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(imageField, filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	return &prediction, nil
}
