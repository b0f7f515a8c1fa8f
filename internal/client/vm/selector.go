package vm

import (
	"sort"
	"strconv"
	"strings"
)

// Identifiers that are never metric names.
var promqlKeywords = map[string]bool{
	"by": true, "without": true, "on": true, "ignoring": true,
	"group_left": true, "group_right": true,
	"bool": true, "and": true, "or": true, "unless": true, "offset": true,
	"inf": true, "nan": true,
}

// Aggregation operators may be followed by a by/without clause before their
// parenthesised argument.
var promqlAggregators = map[string]bool{
	"sum": true, "min": true, "max": true, "avg": true, "group": true,
	"stddev": true, "stdvar": true, "count": true, "count_values": true,
	"bottomk": true, "topk": true, "quantile": true,
}

// Keywords whose parenthesised argument is a label list.
var labelListKeywords = map[string]bool{
	"by": true, "without": true, "on": true, "ignoring": true,
	"group_left": true, "group_right": true,
}

// InjectLabels adds an equality matcher per entry of labels to every vector
// selector in query. Function names, keywords, label lists, string literals,
// durations and range brackets are left untouched. Matchers are emitted in
// label-name order.
func InjectLabels(query string, labels map[string]string) string {
	if len(labels) == 0 {
		return query
	}
	return injectMatchers(query, buildMatchers(labels))
}

func buildMatchers(labels map[string]string) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strconv.Quote(labels[name]))
	}
	return strings.Join(parts, ", ")
}

func injectMatchers(query, matchers string) string {
	var b strings.Builder
	b.Grow(len(query) + len(matchers)*2)

	i := 0
	for i < len(query) {
		ch := query[i]
		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			end := skipString(query, i)
			b.WriteString(query[i:end])
			i = end

		case ch == '[':
			end := strings.IndexByte(query[i:], ']')
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end+1])
			i += end + 1

		case ch == '{':
			// Selector without a metric name, e.g. {__name__="up"}.
			end := writeSelector(&b, query, i, matchers)
			i = end

		case isIdentStart(ch):
			start := i
			for i < len(query) && isIdentChar(query[i]) {
				i++
			}
			ident := query[start:i]
			b.WriteString(ident)

			next := skipSpace(query, i)
			lower := strings.ToLower(ident)
			switch {
			case labelListKeywords[lower]:
				if next < len(query) && query[next] == '(' {
					end := strings.IndexByte(query[next:], ')')
					if end < 0 {
						b.WriteString(query[i:])
						return b.String()
					}
					b.WriteString(query[i : next+end+1])
					i = next + end + 1
				}
			case promqlKeywords[lower], promqlAggregators[lower]:
			case next < len(query) && query[next] == '(':
				// function call
			case next < len(query) && query[next] == '{':
				b.WriteString(query[i:next])
				i = writeSelector(&b, query, next, matchers)
			default:
				b.WriteString("{" + matchers + "}")
			}

		case isDigit(ch) || (ch == '.' && i+1 < len(query) && isDigit(query[i+1])):
			// Numbers and durations such as 5m, 1e3 or 0x1f.
			for i < len(query) && (isIdentChar(query[i]) || query[i] == '.') {
				b.WriteByte(query[i])
				i++
			}

		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// writeSelector copies the selector starting at the '{' at pos, appending
// matchers before its closing brace, and returns the index after it.
func writeSelector(b *strings.Builder, query string, pos int, matchers string) int {
	i := pos + 1
	for i < len(query) && query[i] != '}' {
		if c := query[i]; c == '"' || c == '\'' || c == '`' {
			i = skipString(query, i)
			continue
		}
		i++
	}

	existing := strings.TrimSpace(query[pos+1 : min(i, len(query))])
	existing = strings.TrimSuffix(existing, ",")
	b.WriteByte('{')
	if existing != "" {
		b.WriteString(existing)
		b.WriteString(", ")
	}
	b.WriteString(matchers)
	b.WriteByte('}')

	if i < len(query) {
		return i + 1
	}
	return i
}

// skipString returns the index just past the string literal starting at pos.
func skipString(s string, pos int) int {
	quote := s[pos]
	i := pos + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i += 2
				continue
			}
		case quote:
			return i + 1
		}
		i++
	}
	return len(s)
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n') {
		pos++
	}
	return pos
}

func isIdentStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
