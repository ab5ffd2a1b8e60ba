// Package vision is a client for the hosted skin-condition image classifier.
//
// The endpoint receives raw image bytes and answers with one score per known
// class. Several common response shapes are accepted:
//
//	[0.1, 0.7, 0.2]
//	[[0.1, 0.7, 0.2]]
//	{"predictions": [[0.1, 0.7, 0.2]]}
//	{"scores": [0.1, 0.7, 0.2]}
//	{"probabilities": [0.1, 0.7, 0.2]}
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/pawcare/pkg/utils/httpclient"
	"github.com/kart-io/pawcare/pkg/utils/json"
)

// ErrMalformedOutput is returned when the endpoint answered but its body is
// not a sequence of numbers.
var ErrMalformedOutput = errors.New("vision: malformed classifier output")

// Endpoint classifies an image into per-class scores.
type Endpoint interface {
	Invoke(ctx context.Context, image []byte) ([]float64, error)
}

// Config configures the HTTP endpoint client.
type Config struct {
	URL         string
	APIKey      string
	ContentType string
	Timeout     time.Duration
	MaxRetries  int
}

// Client invokes the classifier over HTTP.
type Client struct {
	cfg    Config
	client *httpclient.Client
}

// NewClient creates a client for cfg.URL.
func NewClient(cfg Config) *Client {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/x-image"
	}
	return &Client{
		cfg:    cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Invoke posts the image and parses the score vector.
func (c *Client) Invoke(ctx context.Context, image []byte) ([]float64, error) {
	headers := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	body, err := c.client.PostBytes(ctx, c.cfg.URL, c.cfg.ContentType, headers, image)
	if err != nil {
		return nil, fmt.Errorf("vision: invoke endpoint: %w", err)
	}
	return ParseScores(body)
}

// ParseScores decodes a classifier response body into a flat score vector.
func ParseScores(body []byte) ([]float64, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrMalformedOutput
	}

	var flat []float64
	if err := json.Unmarshal(body, &flat); err == nil {
		return nonEmpty(flat)
	}

	var nested [][]float64
	if err := json.Unmarshal(body, &nested); err == nil {
		return first(nested)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, ErrMalformedOutput
	}
	for _, key := range []string{"predictions", "scores", "probabilities"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if scores, err := ParseScores(raw); err == nil {
			return scores, nil
		}
	}
	return nil, ErrMalformedOutput
}

func first(nested [][]float64) ([]float64, error) {
	if len(nested) == 0 {
		return nil, ErrMalformedOutput
	}
	return nonEmpty(nested[0])
}

func nonEmpty(scores []float64) ([]float64, error) {
	if len(scores) == 0 {
		return nil, ErrMalformedOutput
	}
	return scores, nil
}

var _ Endpoint = (*Client)(nil)
