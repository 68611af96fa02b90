package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/pkg/resilience"
)

// archiveWriter is the write-behind sink the STT Adapter hands raw audio
// to (C12). It is never read back by the turn pipeline.
type archiveWriter interface {
	Store(chatID, messageID string, audioBytes []byte, format string, sampleRate int)
}

// STTClient is the concrete C3 adapter: multipart-uploads audio to a
// speech-recognition endpoint, in the teacher's Whisper-style call shape.
type STTClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	archive    archiveWriter
}

// NewSTTClient creates an STTClient. archive may be nil to disable the
// write-behind archive entirely.
func NewSTTClient(endpoint, apiKey string, archive archiveWriter, log *logger.Logger) *STTClient {
	return &STTClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("stt-adapter"), log),
		archive:    archive,
	}
}

type sttResponse struct {
	Text string `json:"text"`
}

// Recognise transcribes audioData under ctx's deadline (spec: 15s
// recommended). chatID/messageID are only used to key the archive
// write-behind and have no bearing on the transcription call itself.
func (c *STTClient) Recognise(ctx context.Context, audioData []byte, chatID, messageID string) (TranscriptionResult, error) {
	if c.archive != nil {
		go c.archive.Store(chatID, messageID, audioData, "wav", 16000)
	}

	var result TranscriptionResult
	err := c.breaker.Execute(func() error {
		text, err := c.transcribe(ctx, audioData)
		if err != nil {
			return err
		}
		result = TranscriptionResult{Text: text}
		return nil
	})
	if err != nil {
		return TranscriptionResult{}, err
	}
	return result, nil
}

func (c *STTClient) transcribe(ctx context.Context, audioData []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("error creating form file: %v", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return "", fmt.Errorf("error writing audio data: %v", err)
	}
	if err := writer.WriteField("model", "whisper-1"); err != nil {
		return "", fmt.Errorf("error writing form field: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("error closing multipart writer: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("error creating STT request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making STT request: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading STT response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("STT request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed sttResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", fmt.Errorf("error unmarshaling STT response: %v", err)
	}

	return parsed.Text, nil
}
