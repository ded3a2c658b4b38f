package types

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterRule is one entry of the file walker's ordered include/exclude
// list: if any of Fragments matches the path, the path's "wanted" flag
// is set to Include. The last matching rule wins.
type FilterRule struct {
	Fragments []string
	Include   bool
}

// Matches reports whether any of the rule's glob fragments matches path.
// Fragments are doublestar patterns matched against the path as given
// (typically relative to the source root) and, for patterns with no
// path separator, against the base name too -- this keeps a bare
// extension fragment like "*.mod" matching at any depth.
func (r FilterRule) Matches(path string) bool {
	for _, frag := range r.Fragments {
		if ok, _ := doublestar.Match(frag, path); ok {
			return true
		}
		if ok, _ := doublestar.Match(frag, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// AddFlagsRule adds Flags to a compile/link/preprocess command line when
// Match (a doublestar glob, or empty to always match) matches the input
// path. Multiple rules may match the same path; they compose in
// declaration order: rules add, they never replace.
type AddFlagsRule struct {
	Match string
	Flags []string
}

// FlagsConfig is a common flag list plus an ordered list of per-path
// addition rules.
type FlagsConfig struct {
	Common     []string
	PathFlags  []AddFlagsRule
}

// TemplateVars supplies the $source/$output/$relative placeholders used
// in flag templating.
type TemplateVars struct {
	Source   string
	Output   string
	Relative string
}

// Render substitutes $source, $output and $relative in s with the
// corresponding field of v. Unknown placeholders are left untouched.
func Render(s string, v TemplateVars) string {
	return os.Expand(s, func(name string) string {
		switch name {
		case "source":
			return v.Source
		case "output":
			return v.Output
		case "relative":
			return v.Relative
		default:
			return "$" + name
		}
	})
}

// FlagsForPath resolves the full flag list for a given input path:
// common flags (templated with source/output) followed by every
// path-rule whose Match globs the path (templated additionally with
// relative), in declaration order.
func (f FlagsConfig) FlagsForPath(path SourcePath, sourceRoot, outputRoot string) []string {
	vars := TemplateVars{Source: sourceRoot, Output: outputRoot}

	flags := make([]string, 0, len(f.Common))
	for _, c := range f.Common {
		flags = append(flags, Render(c, vars))
	}

	relative := filepath.Dir(string(path))
	pathVars := TemplateVars{Source: sourceRoot, Output: outputRoot, Relative: relative}

	for _, rule := range f.PathFlags {
		matched := rule.Match == ""
		if !matched {
			renderedMatch := Render(rule.Match, pathVars)
			if ok, _ := doublestar.Match(renderedMatch, string(path)); ok {
				matched = true
			}
		}
		if !matched {
			continue
		}
		for _, add := range rule.Flags {
			flags = append(flags, Render(add, pathVars))
		}
	}

	return flags
}
