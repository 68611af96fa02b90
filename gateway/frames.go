package gateway

import "encoding/json"

// inboundEnvelope is the generic shape every control frame is parsed into
// before being dispatched by its `type` discriminator (spec §4.7/§6).
type inboundEnvelope struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

const (
	typeAuth         = "auth"
	typeUserInfo     = "user_info"
	typeSetChatID    = "set_chat_id"
	typeStartStream  = "start_stream"
	typeEndStream    = "end_stream"
	typeTextMessage  = "text_message"
	typeClearContext = "clear_context"
)

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every reply frame below is a literal struct of marshalable
		// fields; a Marshal failure here means a programming error, not a
		// runtime condition a caller can act on.
		panic(err)
	}
	return b
}

func connectionEstablishedFrame(message string, authenticated bool) []byte {
	return mustMarshal(struct {
		Type          string `json:"type"`
		Message       string `json:"message"`
		Authenticated bool   `json:"authenticated"`
	}{"connection_established", message, authenticated})
}

func authSuccessFrame(userID string) []byte {
	return mustMarshal(struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{"auth_success", userID})
}

func authErrorFrame(errText string) []byte {
	return mustMarshal(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{"auth_error", errText})
}

func errorFrame(errText string) []byte {
	return mustMarshal(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{"error", errText})
}

type speechResponseMetadata struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func speechResponseSuccessFrame(transcription, textResponse string, metadata *speechResponseMetadata) []byte {
	return mustMarshal(struct {
		Type          string                  `json:"type"`
		Success       bool                    `json:"success"`
		Transcription string                  `json:"transcription"`
		TextResponse  string                  `json:"textResponse"`
		Metadata      *speechResponseMetadata `json:"metadata,omitempty"`
	}{"speech_response", true, transcription, textResponse, metadata})
}

func speechResponseFailureFrame(reason string) []byte {
	return mustMarshal(struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}{"speech_response", false, reason})
}

func audioContentFrame(base64Audio string) []byte {
	return mustMarshal(struct {
		Type         string `json:"type"`
		AudioContent string `json:"audioContent"`
	}{"audio_content", base64Audio})
}
