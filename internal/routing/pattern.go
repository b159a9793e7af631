package routing

import (
	"fmt"
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segRest
)

type segment struct {
	kind  segmentKind
	value string
}

// pattern is a compiled path pattern.
type pattern struct {
	raw      string
	segments []segment
	prefix   bool // trailing slash: matches every path below
}

func parsePattern(raw string) (*pattern, error) {
	if raw == "" || raw[0] != '/' {
		return nil, fmt.Errorf("routing: pattern %q must start with /", raw)
	}

	p := &pattern{raw: raw}
	trimmed := strings.TrimPrefix(raw, "/")

	exactSlash := false
	if strings.HasSuffix(trimmed, "{$}") {
		trimmed = strings.TrimSuffix(trimmed, "{$}")
		exactSlash = trimmed != ""
	} else if trimmed == "" || strings.HasSuffix(trimmed, "/") {
		p.prefix = true
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return p, nil
	}

	parts := strings.Split(trimmed, "/")
	seen := make(map[string]bool)
	for i, part := range parts {
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("routing: pattern %q: wildcard must be a full segment", raw)
			}
			p.segments = append(p.segments, segment{kind: segLiteral, value: part})
			continue
		}
		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("routing: pattern %q: unterminated wildcard", raw)
		}
		name := part[1 : len(part)-1]
		kind := segParam
		if strings.HasSuffix(name, "...") {
			if i != len(parts)-1 {
				return nil, fmt.Errorf("routing: pattern %q: %s must be the last segment", raw, part)
			}
			name = strings.TrimSuffix(name, "...")
			kind = segRest
		}
		if name == "" {
			return nil, fmt.Errorf("routing: pattern %q: empty wildcard name", raw)
		}
		if seen[name] {
			return nil, fmt.Errorf("routing: pattern %q: duplicate wildcard %q", raw, name)
		}
		seen[name] = true
		p.segments = append(p.segments, segment{kind: kind, value: name})
	}

	if exactSlash {
		p.segments = append(p.segments, segment{kind: segLiteral})
	}
	if p.prefix && len(p.segments) > 0 && p.segments[len(p.segments)-1].kind == segRest {
		p.prefix = false
	}
	return p, nil
}

// match reports whether path matches and returns the captured wildcards.
func (p *pattern) match(path string) (map[string]string, bool) {
	var parts []string
	if trimmed := strings.TrimPrefix(path, "/"); trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	var params map[string]string
	for i, seg := range p.segments {
		if i >= len(parts) {
			return nil, false
		}
		part := parts[i]
		switch seg.kind {
		case segLiteral:
			if part != seg.value {
				return nil, false
			}
		case segParam:
			if part == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.value] = part
		case segRest:
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.value] = strings.Join(parts[i:], "/")
			return params, true
		}
	}

	n := len(p.segments)
	if p.prefix {
		return params, n == 0 || len(parts) > n
	}
	return params, len(parts) == n
}
