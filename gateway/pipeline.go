package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"voxgate/backend/pkg/logger"
	"voxgate/backend/query"
	"voxgate/backend/speech"
	storemodels "voxgate/backend/store/models"

	"github.com/google/uuid"
)

// cannedApology is persisted and replied when the Query Resolver fails
// (spec §4.8 step 3).
const cannedApology = "I'm sorry, I couldn't understand your query"

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	sourceText  = "text"
	sourceVoice = "voice"
)

// SpeechRecognizer is the Turn Pipeline's view of the STT Adapter (C3).
type SpeechRecognizer interface {
	Recognise(ctx context.Context, audioData []byte, chatID, messageID string) (speech.TranscriptionResult, error)
}

// SpeechSynthesizer is the Turn Pipeline's view of the TTS Adapter (C4).
type SpeechSynthesizer interface {
	Synthesise(ctx context.Context, text, voiceName string) (speech.SynthesisResult, error)
}

// QueryResolver is the Turn Pipeline's view of the Query Resolver (C5).
type QueryResolver interface {
	Resolve(ctx context.Context, userID, queryText string) (query.Result, error)
}

// SessionStore is the gateway's view of the Session Store (C2), covering
// both the Turn Pipeline's append/ownership-check needs and the
// Bootstrap Endpoint's session creation.
type SessionStore interface {
	CreateSession(ctx context.Context, userID, title string) (string, error)
	AppendMessage(ctx context.Context, chatID, role, text, sourceType string) (string, error)
	LoadSession(ctx context.Context, chatID, requestingUserID string) (*storemodels.ChatSession, error)
}

// Timeouts bounds every external call the pipeline makes (spec §5).
type Timeouts struct {
	STT   time.Duration
	Query time.Duration
	TTS   time.Duration
	Store time.Duration
}

// DefaultTimeouts matches spec §5's recommended deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		STT:   15 * time.Second,
		Query: 20 * time.Second,
		TTS:   15 * time.Second,
		Store: 5 * time.Second,
	}
}

// Pipeline is the concrete Turn Pipeline (C8): it orchestrates one voice
// or text turn through STT -> Query -> TTS -> persist -> reply, per spec
// §4.8's ordered phases and partial-failure policy.
type Pipeline struct {
	stt      SpeechRecognizer
	query    QueryResolver
	tts      SpeechSynthesizer
	store    SessionStore
	timeouts Timeouts
	log      *logger.Logger
}

// NewPipeline wires a Pipeline around its four adapter dependencies.
func NewPipeline(stt SpeechRecognizer, resolver QueryResolver, tts SpeechSynthesizer, store SessionStore, timeouts Timeouts, log *logger.Logger) *Pipeline {
	return &Pipeline{stt: stt, query: resolver, tts: tts, store: store, timeouts: timeouts, log: log}
}

// replySink is how the pipeline emits reply frames, in order, on the
// turn's connection. Connection implements this via Enqueue.
type replySink interface {
	Enqueue(frame []byte)
}

// RunAudioTurn executes the audio turn path: Recognise, then the shared
// text-turn tail (spec §4.8 step 1 onward).
func (p *Pipeline) RunAudioTurn(ctx context.Context, userID, chatID string, audioBytes []byte, sink replySink) {
	turnID := uuid.NewString()

	sttCtx, cancel := context.WithTimeout(ctx, p.timeouts.STT)
	result, err := p.stt.Recognise(sttCtx, audioBytes, chatID, turnID)
	cancel()

	if err != nil {
		p.log.Warn("stt recognise failed", "chatId", chatID, "error", err.Error())
		sink.Enqueue(speechResponseFailureFrame("stt_failed"))
		return
	}
	if result.Text == "" {
		sink.Enqueue(speechResponseFailureFrame("no_speech"))
		return
	}

	p.runTurn(ctx, userID, chatID, result.Text, sourceVoice, sink)
}

// RunTextTurn executes the text turn path, skipping Recognise entirely
// (spec §4.7 `text_message`: "equivalent pipeline with STT skipped").
func (p *Pipeline) RunTextTurn(ctx context.Context, userID, chatID, text string, sink replySink) {
	p.runTurn(ctx, userID, chatID, text, sourceText, sink)
}

var errPersistFailed = errors.New("persist_failed")

func (p *Pipeline) runTurn(ctx context.Context, userID, chatID, utterance, sourceType string, sink replySink) {
	// Step 2: persist user message. Always role=user for any
	// human-originated turn, regardless of the caller's identity role
	// (spec §9 Open Question (b)).
	storeCtx, cancel := context.WithTimeout(ctx, p.timeouts.Store)
	_, err := p.store.AppendMessage(storeCtx, chatID, roleUser, utterance, sourceType)
	cancel()
	if err != nil {
		p.log.Warn("user message persist failed", "chatId", chatID, "error", err.Error())
		sink.Enqueue(errorFrame(errPersistFailed.Error()))
		return
	}

	// Step 3: resolve.
	queryCtx, cancel := context.WithTimeout(ctx, p.timeouts.Query)
	resolved, err := p.query.Resolve(queryCtx, userID, utterance)
	cancel()
	if err != nil {
		p.log.Warn("query resolve failed", "chatId", chatID, "error", err.Error())
		p.persistAssistantBestEffort(ctx, chatID, cannedApology)
		sink.Enqueue(speechResponseSuccessFrame(utterance, cannedApology, nil))
		return
	}

	answer := resolved.AnswerText
	metadata := &speechResponseMetadata{
		Intent:     string(resolved.Metadata.Intent),
		Confidence: resolved.Metadata.Confidence,
	}

	// Step 4: synthesise. A TTS failure still proceeds to persist and
	// reply, just without an audio_content frame (spec §4.8 step 4).
	var audioContent []byte
	ttsCtx, cancel := context.WithTimeout(ctx, p.timeouts.TTS)
	synthResult, err := p.tts.Synthesise(ttsCtx, answer, "")
	cancel()
	if err != nil {
		p.log.Warn("tts synthesise failed", "chatId", chatID, "error", err.Error())
	} else {
		audioContent = synthResult.AudioContent
	}

	// Step 5: persist assistant message; failure is logged, never
	// surfaced (spec §4.8 step 5).
	p.persistAssistantBestEffort(ctx, chatID, answer)

	// Step 6: emit replies, contiguously and in order.
	sink.Enqueue(speechResponseSuccessFrame(utterance, answer, metadata))
	if audioContent != nil {
		sink.Enqueue(audioContentFrame(base64.StdEncoding.EncodeToString(audioContent)))
	}
}

func (p *Pipeline) persistAssistantBestEffort(ctx context.Context, chatID, text string) {
	storeCtx, cancel := context.WithTimeout(ctx, p.timeouts.Store)
	defer cancel()
	if _, err := p.store.AppendMessage(storeCtx, chatID, roleAssistant, text, sourceText); err != nil {
		p.log.Error("assistant message persist failed, transcript now inconsistent", "chatId", chatID, "error", err.Error())
	}
}
