package models

import "sort"

// SliceConfig holds the parameters that affect packing output. The three
// respect/use booleans are tri-state so an omitted field can be told apart
// from an explicit false; Normalized applies the documented defaults.
type SliceConfig struct {
	IncludeGlobs       []string `yaml:"include_globs" json:"include_globs"`
	IgnoreGlobs        []string `yaml:"ignore_globs" json:"ignore_globs"`
	RespectGitignore   *bool    `yaml:"respect_gitignore" json:"respect_gitignore"`
	RespectAIIgnore    *bool    `yaml:"respect_ai_ignore" json:"respect_ai_ignore"`
	UseDefaultPatterns *bool    `yaml:"use_default_patterns" json:"use_default_patterns"`
	StripComments      bool     `yaml:"strip_comments" json:"strip_comments"`
	StripBlankLines    bool     `yaml:"strip_blank_lines" json:"strip_blank_lines"`
}

// Normalized returns a copy with glob lists sorted and all optional booleans
// resolved (gitignore, AI-ignore and default patterns all default to true).
// Two configs that are set-equal on globs and agree on the resolved booleans
// normalize to deeply equal values.
func (c SliceConfig) Normalized() SliceConfig {
	n := SliceConfig{
		IncludeGlobs:       sortedCopy(c.IncludeGlobs),
		IgnoreGlobs:        sortedCopy(c.IgnoreGlobs),
		RespectGitignore:   boolOrDefault(c.RespectGitignore, true),
		RespectAIIgnore:    boolOrDefault(c.RespectAIIgnore, true),
		UseDefaultPatterns: boolOrDefault(c.UseDefaultPatterns, true),
		StripComments:      c.StripComments,
		StripBlankLines:    c.StripBlankLines,
	}
	return n
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}

func boolOrDefault(b *bool, def bool) *bool {
	if b == nil {
		return &def
	}
	v := *b
	return &v
}
