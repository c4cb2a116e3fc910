package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PromptsFile is the prompt declaration file at a plugin package's root.
const PromptsFile = "prompts.json"

// Prompt is one question a plugin asks during configuration.
type Prompt struct {
	Name    string
	Type    string
	Message string
	Default string
}

// PromptSet is a plugin's declared prompt list.
type PromptSet struct {
	PluginID string
	Prompts  []Prompt
}

// PromptCollector starts prompt collection for a plugin. The collection UI
// itself lives outside this system.
type PromptCollector interface {
	Collect(ctx context.Context, set *PromptSet) error
}

// LoadPrompts reads a plugin's prompt declarations. A missing file means
// the plugin declares no prompts and returns (nil, nil).
func LoadPrompts(pluginID, dir string) (*PromptSet, error) {
	path := filepath.Join(dir, PromptsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prompts %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed prompts file %s", path)
	}

	set := &PromptSet{PluginID: pluginID}
	for _, p := range gjson.ParseBytes(data).Array() {
		set.Prompts = append(set.Prompts, Prompt{
			Name:    p.Get("name").String(),
			Type:    p.Get("type").String(),
			Message: p.Get("message").String(),
			Default: p.Get("default").String(),
		})
	}
	return set, nil
}

// Answers holds collected prompt answers keyed by prompt name.
type Answers map[string]any

// Serialize renders the answers as a JSON document, with keys in sorted
// order so the output is deterministic.
func (a Answers) Serialize() (string, error) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	body := "{}"
	for _, k := range keys {
		var err error
		body, err = sjson.Set(body, k, a[k])
		if err != nil {
			return "", fmt.Errorf("serializing answer %q: %w", k, err)
		}
	}
	return body, nil
}
