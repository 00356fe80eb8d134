package errpipe

import (
	"fmt"
	"regexp"
	"strings"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// scaffoldPrefix marks synthetic variables the generated-code shape needs;
// findings about them are never the user's fault.
const scaffoldPrefix = "$__tpl_"

// Filter drops known-noise findings. The predicate is pure over
// (message, identifier); membership beyond the builtin scaffolding rule is
// configuration.
type Filter struct {
	IgnoreIdentifiers map[string]bool
	IgnorePatterns    []*regexp.Regexp
}

// NewFilter compiles the configured patterns.
func NewFilter(identifiers []string, patterns []string) (*Filter, error) {
	f := &Filter{IgnoreIdentifiers: make(map[string]bool, len(identifiers))}
	for _, id := range identifiers {
		f.IgnoreIdentifiers[id] = true
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		f.IgnorePatterns = append(f.IgnorePatterns, re)
	}
	return f, nil
}

func (f *Filter) drops(d diag.Diagnostic) bool {
	// Context-array reads are legitimate and get rewritten later; any other
	// mention of a scaffolding variable is generated-code noise.
	if strings.Contains(contextAccess.ReplaceAllString(d.Message, ""), scaffoldPrefix) {
		return true
	}
	if f == nil {
		return false
	}
	if d.Identifier != "" && f.IgnoreIdentifiers[d.Identifier] {
		return true
	}
	for _, re := range f.IgnorePatterns {
		if re.MatchString(d.Message) {
			return true
		}
	}
	return false
}

// Apply returns the findings that survive the noise predicate.
func (f *Filter) Apply(in []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(in))
	for _, d := range in {
		if f.drops(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Collapse merges findings sharing the same final template location and
// identifier/message class. Include reuse duplicates one logical line across
// many flattened units; the user should see it once. Render points of merged
// findings are unioned. Collapse is idempotent.
func Collapse(in []diag.Diagnostic) []diag.Diagnostic {
	type key struct {
		file       source.FileID
		line       uint32
		identifier string
		message    string
	}
	index := make(map[key]int, len(in))
	out := make([]diag.Diagnostic, 0, len(in))
	for _, d := range in {
		final := d.Template()
		k := key{final.File, final.Line, d.Identifier, d.Message}
		at, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, d)
			continue
		}
		out[at].RenderPoints = mergeRenderPoints(out[at].RenderPoints, d.RenderPoints)
	}
	return out
}

func mergeRenderPoints(a, b []diag.RenderPoint) []diag.RenderPoint {
	seen := make(map[diag.RenderPoint]bool, len(a))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			a = append(a, p)
		}
	}
	return a
}

// contextAccess matches reads of the scaffolding context array so messages
// can name the template variable instead.
var contextAccess = regexp.MustCompile(`\$__tpl_context\['([^']+)'\]`)

// Rule is one configured message rewrite.
type Rule struct {
	Pattern *regexp.Regexp
	Replace string
}

// Transformer rewrites raw checker phrasing into template-facing wording.
// Pure text rewrite; chains, severities, and render points are untouched.
type Transformer struct {
	Rules []Rule
}

// NewTransformer compiles configured rewrites given as pattern/replacement
// pairs.
func NewTransformer(pairs [][2]string) (*Transformer, error) {
	t := &Transformer{}
	for _, pair := range pairs {
		re, err := regexp.Compile(pair[0])
		if err != nil {
			return nil, fmt.Errorf("invalid rewrite pattern %q: %w", pair[0], err)
		}
		t.Rules = append(t.Rules, Rule{Pattern: re, Replace: pair[1]})
	}
	return t, nil
}

// Apply rewrites every message.
func (t *Transformer) Apply(in []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(in))
	copy(out, in)
	for i := range out {
		msg := contextAccess.ReplaceAllString(out[i].Message, "$$$1")
		for _, rule := range t.Rules {
			msg = rule.Pattern.ReplaceAllString(msg, rule.Replace)
		}
		out[i].Message = msg
	}
	return out
}
