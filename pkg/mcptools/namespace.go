package mcptools

import (
	"fmt"
	"sort"
)

// NamespaceStrategy decides the exposed name of a tool in the combined list.
// collides reports whether another server advertises the same native name.
// Implementations must be deterministic.
type NamespaceStrategy interface {
	ToolName(serverID, toolName string, collides bool) string
}

// ServerPrefixNamespace prefixes tool names with the originating server label,
// separating fields with a configurable delimiter (defaults to "__" to stay
// within MCP's tool name character set). Only colliding names are prefixed
// unless Always is set.
type ServerPrefixNamespace struct {
	Separator string
	Always    bool
}

func (s ServerPrefixNamespace) separator() string {
	if s.Separator == "" {
		return "__"
	}
	return s.Separator
}

func (s ServerPrefixNamespace) ToolName(serverID, toolName string, collides bool) string {
	if !collides && !s.Always {
		return toolName
	}
	return fmt.Sprintf("%s%s%s", serverID, s.separator(), toolName)
}

// assignToolNames sets Tool.Name on every tool so the combined list has
// globally unique names. tools must already be in label order. A strategy can
// still produce duplicates, e.g. for a native name that happens to look
// prefixed: the first tool keeps the name and later ones get the lowest
// numeric suffix that no other tool wants.
func assignToolNames(ns NamespaceStrategy, tools []*Tool) {
	owners := make(map[string]map[string]struct{}, len(tools))
	for _, t := range tools {
		if owners[t.NativeName] == nil {
			owners[t.NativeName] = make(map[string]struct{})
		}
		owners[t.NativeName][t.ServerID] = struct{}{}
	}
	wanted := make([]string, len(tools))
	reserved := make(map[string]struct{}, len(tools))
	for i, t := range tools {
		wanted[i] = ns.ToolName(t.ServerID, t.NativeName, len(owners[t.NativeName]) > 1)
		reserved[wanted[i]] = struct{}{}
	}
	used := make(map[string]struct{}, len(tools))
	for i, t := range tools {
		name := wanted[i]
		if _, taken := used[name]; taken {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d", wanted[i], n)
				_, taken := used[candidate]
				_, wantedElsewhere := reserved[candidate]
				if !taken && !wantedElsewhere {
					name = candidate
					break
				}
			}
		}
		used[name] = struct{}{}
		t.Name = name
	}
}

func sortedLabels[V any](m map[string]V) []string {
	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
