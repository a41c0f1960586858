package blueprint

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
)

// EncodeYAML renders bp as YAML, for deployments that keep topologies
// alongside other human-edited config rather than as generated JSON. It
// reuses Encode's envelope and round-trips it through an untyped value so
// the YAML keys match the JSON field names exactly.
func EncodeYAML(bp Blueprint) ([]byte, error) {
	jsonBytes, err := Encode(bp)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(jsonBytes, &generic); err != nil {
		return nil, fmt.Errorf("blueprint: yaml encode: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("blueprint: yaml encode: %w", err)
	}
	return out, nil
}

// DecodeYAML parses YAML (as produced by EncodeYAML, or hand-written in
// the same shape) and builds the live topology it describes against r. ctx
// bounds any membership lookups r.Membership performs along the way.
func DecodeYAML(ctx context.Context, data []byte, r *Resolver) (agent.Interactable, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("blueprint: yaml decode: %w", err)
	}
	jsonBytes, err := json.Marshal(normalizeYAML(generic))
	if err != nil {
		return nil, fmt.Errorf("blueprint: yaml decode: %w", err)
	}
	return Decode(ctx, jsonBytes, r)
}

// normalizeYAML converts the map[string]interface{}/[]interface{} tree
// yaml.v3 produces into a shape encoding/json can marshal directly; yaml.v3
// already keys maps by string (unlike yaml.v2's map[interface{}]interface{}),
// so only nested slices and maps need walking.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}
