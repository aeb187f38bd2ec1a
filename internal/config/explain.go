package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at a YAML-like path and where it came
// from. Paths use dots for keys and [i] for list entries:
//
//	backend
//	default_color
//	logging.max_files
//	rules[0].effect
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	var root yaml.Node
	if err := root.Encode(res.Config); err != nil {
		return nil, Source{}, fmt.Errorf("failed to encode config: %w", err)
	}

	node, err := lookupNode(&root, path)
	if err != nil {
		return nil, Source{}, err
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, Source{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupNode(root *yaml.Node, path string) (*yaml.Node, error) {
	node := root
	for _, seg := range splitPath(path) {
		if idx, ok := seg.index(); ok {
			if node.Kind != yaml.SequenceNode || idx < 0 || idx >= len(node.Content) {
				return nil, fmt.Errorf("unknown config path %q", path)
			}
			node = node.Content[idx]
			continue
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("unknown config path %q", path)
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == string(seg) {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("unknown config path %q", path)
		}
		node = next
	}
	return node, nil
}

type pathSegment string

func (s pathSegment) index() (int, bool) {
	if !strings.HasPrefix(string(s), "[") || !strings.HasSuffix(string(s), "]") {
		return 0, false
	}
	n, err := strconv.Atoi(string(s[1 : len(s)-1]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// splitPath turns "rules[1].flags" into ["rules", "[1]", "flags"].
func splitPath(path string) []pathSegment {
	var out []pathSegment
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			i := strings.Index(part, "[")
			switch {
			case i < 0:
				out = append(out, pathSegment(part))
				part = ""
			case i > 0:
				out = append(out, pathSegment(part[:i]))
				part = part[i:]
			default:
				j := strings.Index(part, "]")
				if j < 0 {
					out = append(out, pathSegment(part))
					part = ""
					continue
				}
				out = append(out, pathSegment(part[:j+1]))
				part = part[j+1:]
			}
		}
	}
	return out
}
