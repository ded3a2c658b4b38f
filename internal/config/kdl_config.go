// Package config loads per-run tool flags from a ".fab.kdl" file:
// preprocessor/compiler/linker common flags and per-path "add_flags"
// rules, plus the skip-files list and unreferenced-dependency names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/types"
)

// ToolFlags is the parsed content of one ".fab.kdl" file.
type ToolFlags struct {
	Preprocess types.FlagsConfig
	Compile    types.FlagsConfig
	Link       types.FlagsConfig
	SkipFiles  []string
	UnreferencedDeps []string
}

// Load reads and parses projectRoot/.fab.kdl. A missing file yields an
// empty ToolFlags (every build step works with zero extra flags); a
// present-but-unparseable file is a fatal ConfigError, since silently
// running with the wrong flags is worse than failing the build.
func Load(projectRoot string) (*ToolFlags, error) {
	path := filepath.Join(projectRoot, ".fab.kdl")

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ToolFlags{}, nil
	}
	if err != nil {
		return nil, fabErrors.NewConfigError("path", err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fabErrors.NewConfigError("parse", fmt.Errorf("%s: %w", path, err))
	}

	tf := &ToolFlags{}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "preprocess":
			tf.Preprocess = parseFlagsConfig(n)
		case "compile":
			tf.Compile = parseFlagsConfig(n)
		case "link":
			tf.Link = parseFlagsConfig(n)
		case "skip_files":
			tf.SkipFiles = collectStringArgs(n)
		case "unreferenced_deps":
			tf.UnreferencedDeps = collectStringArgs(n)
		}
	}
	return tf, nil
}

// parseFlagsConfig parses a "preprocess { common ...; add_flags MATCH ... }"
// block into a FlagsConfig.
func parseFlagsConfig(n *document.Node) types.FlagsConfig {
	var fc types.FlagsConfig
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "common":
			fc.Common = collectStringArgs(cn)
		case "add_flags":
			match, ok := firstStringArg(cn)
			if !ok {
				continue
			}
			flags := restStringArgs(cn)
			fc.PathFlags = append(fc.PathFlags, types.AddFlagsRule{Match: match, Flags: flags})
		}
	}
	return fc
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

// restStringArgs returns every string argument after the first (the
// "add_flags MATCH flag1 flag2" trailing flags).
func restStringArgs(n *document.Node) []string {
	if len(n.Arguments) <= 1 {
		return nil
	}
	out := make([]string, 0, len(n.Arguments)-1)
	for _, a := range n.Arguments[1:] {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// collectStringArgs returns a node's string arguments, falling back to its
// children's node names for KDL's block form (e.g. skip_files { "a.f90" }).
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
