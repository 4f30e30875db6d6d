package openai

import (
	"encoding/json"
	"errors"
	"strings"
)

// OpenAI-compatible chat completion schema. Only the fields the gateway
// actually interprets are typed strictly; sampling parameters are accepted
// and carried but never forwarded to the backend.

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	N                *int          `json:"n,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
	Stop             any           `json:"stop,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	User             string        `json:"user,omitempty"`
}

type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
	Name    string         `json:"name,omitempty"`
}

// MessageContent is exactly one of two variants: plain text, or an ordered
// list of content parts. Parts == nil means the text variant.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

func Text(s string) MessageContent { return MessageContent{Text: s} }

func (c MessageContent) Multipart() bool { return c.Parts != nil }

func (c *MessageContent) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	switch {
	case t == "null":
		*c = MessageContent{}
		return nil
	case strings.HasPrefix(t, `"`):
		c.Parts = nil
		return json.Unmarshal(b, &c.Text)
	case strings.HasPrefix(t, "["):
		c.Text = ""
		return json.Unmarshal(b, &c.Parts)
	}
	return errors.New("content must be a string or an array of parts")
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ContentPart carries unknown types through undecoded so translation can
// skip them without failing the whole message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

type ImageRef struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// PlainText flattens content to text only: text parts joined, image and
// unknown parts dropped.
func (c MessageContent) PlainText() string {
	if !c.Multipart() {
		return c.Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type != PartText || p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// HistoryText is the string form persisted to the message store. Images
// cannot be round-tripped into the text-only history, so they degrade to
// placeholders.
func (c MessageContent) HistoryText() string {
	if !c.Multipart() {
		return c.Text
	}
	var hasText, hasImage bool
	for _, p := range c.Parts {
		switch p.Type {
		case PartText:
			hasText = true
		case PartImageURL:
			hasImage = true
		}
	}
	switch {
	case hasImage && hasText:
		return "[Mixed Content]"
	case hasImage:
		return "[Image]"
	default:
		return c.PlainText()
	}
}

type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

type ChatCompletionChoice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ModelsResponse struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}
