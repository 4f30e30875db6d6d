package claude

import (
	"context"
	"strings"

	"github.com/znorris/claude-code-api/internal/openai"
)

// UserInput is the single stream-json document fed to the CLI per
// invocation. Prior turns are never resent; the backend carries context via
// its own session resume.
type UserInput struct {
	Type    string       `json:"type"`
	System  string       `json:"system,omitempty"`
	Message InputMessage `json:"message"`
}

type InputMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Translator converts an OpenAI message list into the backend's input
// protocol.
type Translator struct {
	images *ImageResolver
}

func NewTranslator(images *ImageResolver) *Translator {
	return &Translator{images: images}
}

// BuildUserInput translates the most recent user message into backend
// content blocks and attaches the most recent system message's text as the
// top-level instruction. Earlier history is assumed known to the backend.
func (t *Translator) BuildUserInput(ctx context.Context, messages []openai.ChatMessage) (UserInput, error) {
	var latestUser *openai.ChatMessage
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.RoleUser {
			latestUser = &messages[i]
			break
		}
	}
	if latestUser == nil {
		return UserInput{}, &ConfigurationError{Reason: "no user message to translate"}
	}

	blocks, err := t.contentBlocks(ctx, latestUser.Content)
	if err != nil {
		return UserInput{}, err
	}

	in := UserInput{
		Type: "user",
		Message: InputMessage{
			Role:    openai.RoleUser,
			Content: blocks,
		},
	}

	// Most recent system message by position supplies the instruction
	// field. Image parts inside a system message are not supported.
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.RoleSystem {
			in.System = messages[i].Content.PlainText()
			break
		}
	}

	return in, nil
}

func (t *Translator) contentBlocks(ctx context.Context, content openai.MessageContent) ([]ContentBlock, error) {
	if !content.Multipart() {
		return []ContentBlock{{Type: "text", Text: content.Text}}, nil
	}

	var blocks []ContentBlock
	for _, part := range content.Parts {
		switch part.Type {
		case openai.PartText:
			blocks = append(blocks, ContentBlock{Type: "text", Text: part.Text})
		case openai.PartImageURL:
			if part.ImageURL == nil {
				continue
			}
			data, mediaType, err := t.images.Resolve(ctx, part.ImageURL.URL)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, ContentBlock{
				Type: "image",
				Source: &ImageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      data,
				},
			})
		default:
			// unknown part kinds are dropped, not rejected
		}
	}
	return blocks, nil
}

// FlattenPrompt renders the whole conversation as one flat text prompt, for
// backends that do not accept structured stream-json input.
func FlattenPrompt(messages []openai.ChatMessage) string {
	var parts []string
	for _, m := range messages {
		text := m.Content.PlainText()
		switch m.Role {
		case openai.RoleSystem:
			parts = append(parts, "System: "+text)
		case openai.RoleUser:
			parts = append(parts, "User: "+text)
		case openai.RoleAssistant:
			parts = append(parts, "Assistant: "+text)
		}
	}
	return strings.Join(parts, "\n\n")
}
