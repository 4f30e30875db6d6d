package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentUnmarshal(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		var m ChatMessage
		require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m))
		assert.False(t, m.Content.Multipart())
		assert.Equal(t, "hello", m.Content.Text)
	})

	t.Run("part list", func(t *testing.T) {
		var m ChatMessage
		raw := `{"role":"user","content":[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]}`
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		assert.True(t, m.Content.Multipart())
		require.Len(t, m.Content.Parts, 2)
		assert.Equal(t, PartText, m.Content.Parts[0].Type)
		require.NotNil(t, m.Content.Parts[1].ImageURL)
		assert.Equal(t, "data:image/png;base64,AAAA", m.Content.Parts[1].ImageURL.URL)
	})

	t.Run("null content is empty text", func(t *testing.T) {
		var m ChatMessage
		require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":null}`), &m))
		assert.False(t, m.Content.Multipart())
		assert.Empty(t, m.Content.Text)
	})

	t.Run("other shapes are rejected", func(t *testing.T) {
		var m ChatMessage
		assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &m))
	})
}

func TestHistoryText(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "hi", Text("hi").HistoryText())
	})

	t.Run("text-only parts are joined", func(t *testing.T) {
		c := MessageContent{Parts: []ContentPart{
			{Type: PartText, Text: "a"},
			{Type: PartText, Text: "b"},
		}}
		assert.Equal(t, "a\nb", c.HistoryText())
	})

	t.Run("image-only content becomes a placeholder", func(t *testing.T) {
		c := MessageContent{Parts: []ContentPart{
			{Type: PartImageURL, ImageURL: &ImageRef{URL: "https://x/pic.png"}},
		}}
		assert.Equal(t, "[Image]", c.HistoryText())
	})

	t.Run("mixed content becomes a placeholder", func(t *testing.T) {
		c := MessageContent{Parts: []ContentPart{
			{Type: PartText, Text: "see"},
			{Type: PartImageURL, ImageURL: &ImageRef{URL: "https://x/pic.png"}},
		}}
		assert.Equal(t, "[Mixed Content]", c.HistoryText())
	})
}

func TestSupportedModel(t *testing.T) {
	assert.True(t, SupportedModel("sonnet"))
	assert.True(t, SupportedModel("opus"))
	assert.False(t, SupportedModel("gpt-4"))
}
