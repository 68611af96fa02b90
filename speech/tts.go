package speech

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
	"voxgate/backend/speech/voiceprofile"
)

// TTSClient is the concrete C4 adapter: posts text to a configured
// speech-synthesis endpoint, with the voice resolved through the Voice
// Profile Registry (C11).
type TTSClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	registry   *voiceprofile.Registry
}

// NewTTSClient creates a TTSClient.
func NewTTSClient(endpoint, apiKey string, registry *voiceprofile.Registry, log *logger.Logger) *TTSClient {
	return &TTSClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("tts-adapter"), log),
		registry:   registry,
	}
}

type ttsRequest struct {
	Text  string             `json:"text"`
	Voice voiceprofile.Profile `json:"voice"`
}

// Synthesise renders text to audio under ctx's deadline (spec: 15s
// recommended), using the named voice profile or the registry default if
// voiceName is empty or unresolvable.
func (c *TTSClient) Synthesise(ctx context.Context, text, voiceName string) (SynthesisResult, error) {
	profile := c.registry.Resolve(voiceName)

	var result SynthesisResult
	err := c.breaker.Execute(func() error {
		audio, err := c.synthesise(ctx, text, profile)
		if err != nil {
			return err
		}
		result = SynthesisResult{AudioContent: audio}
		return nil
	})
	if err != nil {
		return SynthesisResult{}, err
	}
	return result, nil
}

func (c *TTSClient) synthesise(ctx context.Context, text string, profile voiceprofile.Profile) ([]byte, error) {
	jsonData, err := json.Marshal(ttsRequest{Text: text, Voice: profile})
	if err != nil {
		return nil, fmt.Errorf("error marshaling TTS request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating TTS request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	if c.apiKey != "" {
		req.Header.Set("xi-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making TTS request: %v", err)
	}
	defer resp.Body.Close()

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading TTS response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(audioData))
	}

	return audioData, nil
}
