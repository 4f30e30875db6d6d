package openai

// Model names accepted by the gateway and passed through to the claude CLI
// unchanged. Anything else is rejected before a subprocess is ever spawned.
var SupportedModels = []string{
	"sonnet",
	"opus",
	"claude-sonnet-4-20250514",
	"claude-opus-3-20240229",
}

const DefaultModel = "sonnet"

func SupportedModel(name string) bool {
	for _, m := range SupportedModels {
		if m == name {
			return true
		}
	}
	return false
}

func ListModels() []ModelEntry {
	out := make([]ModelEntry, 0, len(SupportedModels))
	for _, m := range SupportedModels {
		out = append(out, ModelEntry{ID: m, Object: "model", OwnedBy: "anthropic"})
	}
	return out
}
