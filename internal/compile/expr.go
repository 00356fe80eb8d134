package compile

import "strings"

// phpKeywords pass through untouched instead of becoming variables.
var phpKeywords = map[string]string{
	"true":  "true",
	"false": "false",
	"null":  "null",
	"not":   "!",
	"and":   "&&",
	"or":    "||",
	"in":    "in",
}

// ExprToPHP rewrites a template expression into PHP: bare identifiers become
// variables, dotted access becomes property access, and filter pipes become
// function calls ("items|join(', ')" turns into "join($items, ', ')").
func ExprToPHP(expr string) string {
	segments := splitFilters(expr)
	out := rewriteTokens(segments[0])
	for _, filter := range segments[1:] {
		name, args := splitFilterCall(filter)
		if args == "" {
			out = name + "(" + out + ")"
		} else {
			out = name + "(" + out + ", " + rewriteTokens(args) + ")"
		}
	}
	return out
}

// splitFilters splits on top-level single '|' pipes, leaving '||', quoted
// strings, and parenthesized arguments intact.
func splitFilters(expr string) []string {
	var segments []string
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; c {
		case '\'', '"':
			i = skipString(expr, i)
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '|':
			if depth == 0 && i+1 < len(expr) && expr[i+1] == '|' {
				i++
				continue
			}
			if depth == 0 && (i == 0 || expr[i-1] != '|') {
				segments = append(segments, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	segments = append(segments, strings.TrimSpace(expr[start:]))
	return segments
}

func splitFilterCall(filter string) (name, args string) {
	if i := strings.IndexByte(filter, '('); i >= 0 && strings.HasSuffix(filter, ")") {
		return strings.TrimSpace(filter[:i]), strings.TrimSpace(filter[i+1 : len(filter)-1])
	}
	return strings.TrimSpace(filter), ""
}

// rewriteTokens walks the expression and prefixes identifiers with '$',
// turning dotted access into '->'. Identifiers directly followed by '('
// are calls and keep their bare name.
func rewriteTokens(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == '\'' || c == '"':
			end := skipString(expr, i)
			b.WriteString(expr[i : end+1])
			i = end + 1
		case isIdentStart(c):
			j := i
			for j < len(expr) && (isIdentByte(expr[j]) || expr[j] == '.') {
				j++
			}
			word := expr[i:j]
			i = j
			if repl, ok := phpKeywords[word]; ok {
				b.WriteString(repl)
				continue
			}
			if j < len(expr) && expr[j] == '(' && !strings.Contains(word, ".") {
				b.WriteString(word)
				continue
			}
			b.WriteByte('$')
			b.WriteString(strings.ReplaceAll(word, ".", "->"))
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func skipString(s string, start int) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == quote {
			return i
		}
	}
	return len(s) - 1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// quotePHP renders raw template text as a double-quoted PHP string literal
// on a single line.
func quotePHP(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"', '$':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
