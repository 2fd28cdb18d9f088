package manifest

import (
	"fmt"
	"strings"
	"unicode"
)

// ToGroupName converts a dependency name to an import group.
// "My-Lib" -> "my_lib", "strings" -> "strings", "util.text" -> "util_text"
func ToGroupName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || r == '.' || r == ' ':
			sb.WriteRune('_')
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Trim(sb.String(), "_")
}

// ValidGroupName reports whether name can appear as the first segment of
// an import path.
func ValidGroupName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// resolveGroup determines the import group of a dependency:
//  1. Consumer override (dep.Group from TOML)
//  2. Producer manifest (depManifest.Project.Group)
//  3. The dependency name converted with ToGroupName
func resolveGroup(name string, dep Dependency, depManifest *Manifest) (string, error) {
	var group string
	switch {
	case dep.Group != "":
		group = dep.Group
	case depManifest != nil && depManifest.Project.Group != "":
		group = depManifest.Project.Group
	default:
		group = ToGroupName(name)
	}

	if !ValidGroupName(group) {
		return "", fmt.Errorf("dependency %q resolves to invalid group %q; add group = \"...\" in [dependencies]", name, group)
	}
	return group, nil
}
