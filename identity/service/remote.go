package service

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

// RemoteVerifier calls an external identity provider's token introspection
// endpoint. The provider is opaque to the gateway (spec §6): this adapter
// only knows the wire shape it itself defines.
type RemoteVerifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewRemoteVerifier creates a RemoteVerifier targeting the given
// introspection endpoint.
func NewRemoteVerifier(endpoint, apiKey string, log *logger.Logger) *RemoteVerifier {
	return &RemoteVerifier{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("identity-verifier"), log),
	}
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Verify implements Verifier.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var identity Identity
	err := v.breaker.Execute(func() error {
		resolved, err := v.introspect(ctx, token)
		if err != nil {
			return err
		}
		identity = resolved
		return nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	return identity, nil
}

func (v *RemoteVerifier) introspect(ctx context.Context, token string) (Identity, error) {
	jsonData, err := json.Marshal(introspectRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("error marshaling introspection request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return Identity{}, fmt.Errorf("error creating introspection request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("error making introspection request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Identity{}, fmt.Errorf("error reading introspection response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("introspection request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed introspectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Identity{}, fmt.Errorf("error unmarshaling introspection response: %v", err)
	}

	if !parsed.Active || parsed.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	role := RoleUser
	if parsed.Role == string(RoleAdmin) {
		role = RoleAdmin
	}

	return Identity{UserID: parsed.UserID, Role: role}, nil
}
