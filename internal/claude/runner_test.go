package claude

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunnerArgs(t *testing.T) {
	r := NewRunner("claude", 30*time.Second, zerolog.Nop())

	t.Run("structured input mode", func(t *testing.T) {
		args := r.args(Invocation{Model: "sonnet"})
		assert.Equal(t, []string{
			"--model", "sonnet",
			"--input-format", "stream-json",
			"--print", "--output-format", "stream-json", "--verbose",
		}, args)
	})

	t.Run("resume token is passed through", func(t *testing.T) {
		args := r.args(Invocation{Model: "opus", BackendSessionID: "abc-123"})
		assert.Contains(t, args, "--resume")
		assert.Contains(t, args, "abc-123")
	})

	t.Run("legacy blocking mode uses single-shot json", func(t *testing.T) {
		args := r.args(Invocation{Model: "sonnet", LegacyPrompt: "User: hi"})
		assert.Equal(t, []string{
			"--model", "sonnet",
			"--print", "--output-format", "json",
			"User: hi",
		}, args)
	})

	t.Run("legacy streaming mode uses stream-json", func(t *testing.T) {
		args := r.args(Invocation{Model: "sonnet", Stream: true, LegacyPrompt: "User: hi"})
		assert.Equal(t, []string{
			"--model", "sonnet",
			"--print", "--output-format", "stream-json", "--verbose",
			"User: hi",
		}, args)
	})
}
