// Package assessor wraps the external probability-assessment service. The
// service is treated as an opaque, possibly slow, possibly failing black box;
// every failure surfaces as ErrAssessmentUnavailable so callers can degrade to
// "skip seeding".
package assessor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrAssessmentUnavailable = errors.New("assessor: assessment unavailable")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assessor API error (%d): %s", e.Status, e.Body)
}

type AssessRequest struct {
	MarketID       string  `json:"market_id"`
	Question       string  `json:"question"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	CurrentYesProb float64 `json:"current_yes_probability"`
}

type Assessment struct {
	YesProbability        float64 `json:"yes_probability"`
	Confidence            float64 `json:"confidence"`
	RecommendedSeedAmount float64 `json:"recommended_seed_amount"`
	ModelUsed             string  `json:"model_used"`
}

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// Assess requests a probability assessment for a market. The HTTP client's
// timeout bounds the call; the caller never blocks past it.
func (c *Client) Assess(ctx context.Context, req AssessRequest) (Assessment, error) {
	if c == nil || c.host == "" {
		return Assessment{}, ErrAssessmentUnavailable
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/assess", bytes.NewReader(payload))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable,
			&APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	var out Assessment
	if err := json.Unmarshal(body, &out); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrAssessmentUnavailable, err)
	}
	if out.YesProbability < 0 || out.YesProbability > 1 || out.Confidence < 0 || out.Confidence > 1 {
		return Assessment{}, fmt.Errorf("%w: probability or confidence out of range", ErrAssessmentUnavailable)
	}
	return out, nil
}
