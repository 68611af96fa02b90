// Package query implements the Query Resolver (C5): a thin HTTP client
// over a context-aware answer-generation endpoint, in the teacher's
// JSON-POST call style (ai/ai_service.go's generateResponseOpenAI).
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/pkg/resilience"
)

// Intent classifies the resolved query, per spec §4.5.
type Intent string

const (
	IntentWeather Intent = "WEATHER_QUERY"
	IntentTime    Intent = "TIME_QUERY"
	IntentAccount Intent = "ACCOUNT_QUERY"
	IntentHelp    Intent = "HELP_REQUEST"
	IntentUnknown Intent = "UNKNOWN"
)

// Metadata is classification detail attached to a resolved answer.
type Metadata struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of a successful Resolve call.
type Result struct {
	AnswerText string
	Metadata   Metadata
}

// Resolver is the concrete C5 adapter.
type Resolver struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// New creates a Resolver targeting the given query endpoint.
func New(endpoint, apiKey string, log *logger.Logger) *Resolver {
	return &Resolver{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("query-resolver"), log),
	}
}

type resolveRequest struct {
	UserID    string `json:"userId"`
	QueryText string `json:"queryText"`
}

type resolveResponse struct {
	AnswerText string   `json:"answerText"`
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Error      *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Resolve answers queryText for userID under ctx's deadline (spec: 20s
// recommended). The gateway never calls this with an empty queryText: the
// Session Manager rejects an empty text_message, and the Turn Pipeline
// ends an audio turn with no_speech on an empty transcript (spec §4.5).
func (r *Resolver) Resolve(ctx context.Context, userID, queryText string) (Result, error) {
	var result Result
	err := r.breaker.Execute(func() error {
		resolved, err := r.resolve(ctx, userID, queryText)
		if err != nil {
			return err
		}
		result = resolved
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, userID, queryText string) (Result, error) {
	jsonData, err := json.Marshal(resolveRequest{UserID: userID, QueryText: queryText})
	if err != nil {
		return Result{}, fmt.Errorf("error marshaling query request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{}, fmt.Errorf("error creating query request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error making query request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("error reading query response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("query request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("error unmarshaling query response: %v", err)
	}
	if parsed.Error != nil {
		return Result{}, fmt.Errorf("query resolver error: %s", parsed.Error.Message)
	}

	intent := parsed.Intent
	if intent == "" {
		intent = IntentUnknown
	}

	return Result{
		AnswerText: parsed.AnswerText,
		Metadata:   Metadata{Intent: intent, Confidence: parsed.Confidence},
	}, nil
}
