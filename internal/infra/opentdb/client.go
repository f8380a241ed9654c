package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

const (
	DefaultBaseURL = "https://opentdb.com/api.php"
	DefaultTimeout = 10 * time.Second
	defaultAmount  = app.DefaultQuestionCount
)

// Open Trivia DB response codes.
const (
	codeSuccess      = 0
	codeNoResults    = 1
	codeInvalidParam = 2
	codeRateLimit    = 5
)

type apiResponse struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

// Client fetches questions from Open Trivia DB. It implements app.QuestionFetcher.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// FetchQuestions performs one request. Transport failures, non-200 statuses and
// rate limiting are reported as retryable.
func (c *Client) FetchQuestions(ctx context.Context, query app.QuestionQuery) ([]domain.RawQuestion, error) {
	reqURL, err := c.requestURL(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: opentdb returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	switch payload.ResponseCode {
	case codeSuccess:
		return payload.Results, nil
	case codeRateLimit:
		return nil, domain.ErrRateLimited
	case codeNoResults, codeInvalidParam:
		return nil, fmt.Errorf("opentdb rejected query: response_code=%d", payload.ResponseCode)
	default:
		return nil, fmt.Errorf("%w: opentdb response_code=%d", domain.ErrProviderUnavailable, payload.ResponseCode)
	}
}

func (c *Client) requestURL(query app.QuestionQuery) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	amount := query.Amount
	if amount <= 0 {
		amount = defaultAmount
	}
	q := u.Query()
	q.Set("amount", strconv.Itoa(amount))
	if query.Category != "" {
		q.Set("category", query.Category)
	}
	if query.Difficulty != "" {
		q.Set("difficulty", query.Difficulty)
	}
	if query.Type != "" {
		q.Set("type", query.Type)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
