package opentdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient("", &http.Client{Transport: rt})
}

func respond(status int, body string) roundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     make(http.Header),
		}, nil
	}
}

func TestFetchQuestionsSendsQuery(t *testing.T) {
	var seen *http.Request
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return respond(http.StatusOK, `{"response_code":0,"results":[{"type":"multiple","difficulty":"medium","category":"Science","question":"Q?","correct_answer":"A","incorrect_answers":["B","C","D"]}]}`)(r)
	}))

	questions, err := client.FetchQuestions(context.Background(), app.QuestionQuery{
		Amount:     5,
		Category:   "17",
		Difficulty: "medium",
		Type:       "multiple",
	})
	if err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "A" || len(questions[0].IncorrectAnswers) != 3 {
		t.Fatalf("unexpected questions: %+v", questions)
	}
	q := seen.URL.Query()
	if q.Get("amount") != "5" || q.Get("category") != "17" || q.Get("difficulty") != "medium" || q.Get("type") != "multiple" {
		t.Fatalf("unexpected query: %s", seen.URL.RawQuery)
	}
	if seen.URL.Host != "opentdb.com" {
		t.Fatalf("expected default host, got %s", seen.URL.Host)
	}
}

func TestFetchQuestionsUsesDefaultAmountWhenNonPositive(t *testing.T) {
	var seenAmount string
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seenAmount = r.URL.Query().Get("amount")
		return respond(http.StatusOK, `{"response_code":0,"results":[]}`)(r)
	}))

	if _, err := client.FetchQuestions(context.Background(), app.QuestionQuery{}); err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
	if seenAmount != "5" {
		t.Fatalf("expected default amount 5, got %q", seenAmount)
	}
}

func TestFetchQuestionsClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		rt        roundTripperFunc
		want      error
		retryable bool
	}{
		{"too many requests", respond(http.StatusTooManyRequests, ""), domain.ErrRateLimited, true},
		{"rate limit code", respond(http.StatusOK, `{"response_code":5,"results":[]}`), domain.ErrRateLimited, true},
		{"bad gateway", respond(http.StatusBadGateway, ""), domain.ErrProviderUnavailable, true},
		{"transport", func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") }, domain.ErrProviderUnavailable, true},
		{"not json", respond(http.StatusOK, "not-json"), domain.ErrMalformedResponse, false},
		{"token code", respond(http.StatusOK, `{"response_code":4,"results":[]}`), domain.ErrProviderUnavailable, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestClient(tc.rt).FetchQuestions(context.Background(), app.QuestionQuery{Amount: 3})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if errors.Is(err, domain.ErrProviderUnavailable) != tc.retryable {
				t.Fatalf("unexpected retryability for %v", err)
			}
		})
	}
}

func TestFetchQuestionsRejectedQueryIsNotRetryable(t *testing.T) {
	client := newTestClient(respond(http.StatusOK, `{"response_code":1,"results":[{"question":"ignored"}]}`))

	_, err := client.FetchQuestions(context.Background(), app.QuestionQuery{Amount: 50})
	if err == nil {
		t.Fatalf("expected error for non-zero response_code")
	}
	if errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected a non-retryable error, got %v", err)
	}
}
