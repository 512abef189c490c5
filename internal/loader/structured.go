package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-labs/ragkit/internal/normalize"
)

var jsonStrategies = []namedStrategy{
	{Name: "json_flattened", Tier: TierEnhanced, Fn: jsonEnhanced},
	{Name: "json_raw_blob", Tier: TierBasic, Fn: jsonBasic},
	{Name: "json_bytes", Tier: TierFallback, Fn: rawBytesFallback},
}

var yamlStrategies = []namedStrategy{
	{Name: "yaml_flattened", Tier: TierEnhanced, Fn: yamlEnhanced},
	{Name: "yaml_raw_blob", Tier: TierBasic, Fn: yamlBasic},
	{Name: "yaml_bytes", Tier: TierFallback, Fn: rawBytesFallback},
}

// jsonEnhanced decodes JSON into a generic tree and flattens it into
// "key: value" narrative lines, giving embeddings something more legible
// than a single minified blob.
func jsonEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	var data any
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, err
	}
	return flattenToElements(data), nil
}

func jsonBasic(_ context.Context, payload Payload) ([]Element, error) {
	var data any
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, err
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	txt := normalize.Normalize(string(pretty))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}

func yamlEnhanced(_ context.Context, payload Payload) ([]Element, error) {
	var data any
	if err := yaml.Unmarshal(payload.Data, &data); err != nil {
		return nil, err
	}
	return flattenToElements(normalizeYAMLKeys(data)), nil
}

func yamlBasic(_ context.Context, payload Payload) ([]Element, error) {
	var data any
	if err := yaml.Unmarshal(payload.Data, &data); err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return nil, err
	}
	txt := normalize.Normalize(string(out))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}

func rawBytesFallback(_ context.Context, payload Payload) ([]Element, error) {
	txt := normalize.Normalize(string(payload.Data))
	if txt == "" {
		return nil, nil
	}
	return []Element{{Kind: KindNarrativeText, Text: txt, Order: 0}}, nil
}

// normalizeYAMLKeys converts map[any]any nodes (what gopkg.in/yaml.v3 can
// hand back for nested maps) into map[string]any so flattenToElements has
// one shape to walk.
func normalizeYAMLKeys(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[k] = normalizeYAMLKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = normalizeYAMLKeys(val)
		}
		return out
	default:
		return v
	}
}

// flattenToElements walks a decoded JSON/YAML tree depth-first, emitting a
// Title per top-level key and a NarrativeText line per leaf path.
func flattenToElements(data any) []Element {
	var elements []Element
	order := 0

	switch node := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			elements = append(elements, Element{Kind: KindTitle, Text: k, Order: order})
			order++
			for _, line := range flattenLines(node[k], k) {
				elements = append(elements, Element{Kind: KindNarrativeText, Text: normalize.Normalize(line), Order: order})
				order++
			}
		}
	default:
		for _, line := range flattenLines(data, "") {
			elements = append(elements, Element{Kind: KindNarrativeText, Text: normalize.Normalize(line), Order: order})
			order++
		}
	}
	return elements
}

func flattenLines(v any, prefix string) []string {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var lines []string
		for _, k := range keys {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			lines = append(lines, flattenLines(node[k], path)...)
		}
		return lines
	case []any:
		var lines []string
		for i, item := range node {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			lines = append(lines, flattenLines(item, path)...)
		}
		return lines
	default:
		return []string{fmt.Sprintf("%s: %v", prefix, node)}
	}
}
