package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/netzbremse/nb-speedtest/pkg/grace"
	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

const submissionTokenTTL = 2 * time.Minute

// Submission is the collector's wire format for one measurement.
type Submission struct {
	Agent      string            `json:"agent,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	DurationMs int64             `json:"durationMs"`
	Status     prob.RunStatus    `json:"status"`
	Report     speedtest.Report  `json:"report"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%v (code: %d)", e.Message, e.Code)
}

// Collector submits finished measurements to a remote collector service.
type Collector struct {
	baseUrl    *url.URL
	httpClient *http.Client

	agentID string
	labels  map[string]string
	secret  []byte
}

func NewCollector(baseUrl, agentID, secret string, labels map[string]string) (*Collector, error) {
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("unparsable collector URL %q: %w", baseUrl, err)
	}

	collector := &Collector{
		baseUrl:    parsed,
		httpClient: &http.Client{},
		agentID:    agentID,
		labels:     labels,
	}
	if secret != "" {
		collector.secret = []byte(secret)
	}

	return collector, nil
}

func (c *Collector) Name() string {
	return "collector"
}

func (c *Collector) Submit(ctx context.Context, report speedtest.RunReport) error {
	submission := Submission{
		Agent:      c.agentID,
		Labels:     c.labels,
		StartedAt:  report.Started,
		DurationMs: report.Duration.Milliseconds(),
		Status:     report.Status,
		Report:     report.Report,
	}

	if err := c.post(ctx, c.baseUrl.JoinPath("api/v1/reports"), submission); err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}

	// Recordings ride along after the report itself made it through
	wg := grace.NewWorkgroup(4)
	for _, a := range report.Artifacts {
		artifact := a
		if artifact.Rel == "report" {
			continue
		}

		wg.Go(func() error {
			target := c.baseUrl.JoinPath("api/v1/artifacts")
			if err := c.post(ctx, target, artifact); err != nil {
				return fmt.Errorf("failed to submit artifact %q: %w", artifact.Rel, err)
			}

			return nil
		})
	}

	return wg.Wait()
}

func (c *Collector) post(ctx context.Context, target *url.URL, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	request.Header.Add("Accept", "application/json")
	request.Header.Add("Content-Type", "application/json")

	token, err := c.submissionToken()
	if err != nil {
		return err
	}
	if token != "" {
		request.Header.Add("Authorization", fmt.Sprintf("Bearer %v", token))
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		return readApiError(resp)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// submissionToken mints a short-lived token when the collector requires
// authenticated submissions.
func (c *Collector) submissionToken() (string, error) {
	if len(c.secret) == 0 {
		return "", nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.agentID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(submissionTokenTTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func readApiError(resp *http.Response) error {
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		errorResponse := &ErrorResponse{
			Code:    resp.StatusCode,
			Message: resp.Status,
		}
		if err := json.NewDecoder(resp.Body).Decode(errorResponse); err != nil {
			// Failed to unmarshal error message, fallback to HTTP status code
			return errorResponse
		}

		return errorResponse
	}

	return fmt.Errorf("%v", resp.Status)
}
