package model

import (
	"strings"
)

// Visibility is an ordered reach level. Parent and Outer are expressed
// relative to the generated unit tree: Parent reaches the scope that held
// the original file, Outer reaches one scope above it.
type Visibility int

const (
	VisPrivate Visibility = iota
	VisParent
	VisOuter
	VisCrate
	VisPublic
)

func (v Visibility) String() string {
	switch v {
	case VisPrivate:
		return "private"
	case VisParent:
		return "parent"
	case VisOuter:
		return "outer"
	case VisCrate:
		return "crate"
	case VisPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Keyword renders the visibility for an item declared depth modules below
// the original module. Depth 0 is the original module itself.
func (v Visibility) Keyword(depth int) string {
	switch v {
	case VisPublic:
		return "pub"
	case VisCrate:
		return "pub(crate)"
	case VisParent:
		return superPath(depth)
	case VisOuter:
		return superPath(depth + 1)
	default:
		return ""
	}
}

func superPath(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "pub(super)"
	default:
		return "pub(in " + strings.TrimSuffix(strings.Repeat("super::", n), "::") + ")"
	}
}

// Max returns the wider of two visibilities.
func Max(a, b Visibility) Visibility {
	if a > b {
		return a
	}
	return b
}

// ParseVisibility maps a source visibility modifier to a level as seen from
// inside the original module.
func ParseVisibility(modifier string) Visibility {
	m := strings.Join(strings.Fields(modifier), "")
	switch {
	case m == "":
		return VisPrivate
	case m == "pub":
		return VisPublic
	case m == "pub(crate)", strings.HasPrefix(m, "pub(incrate"):
		return VisCrate
	case m == "pub(self)", m == "pub(inself)":
		return VisPrivate
	case m == "pub(super)":
		return VisParent
	case strings.HasPrefix(m, "pub(in"):
		// pub(in path) reaches at most the crate; treat as the narrow end
		// that still covers the parent.
		return VisParent
	default:
		return VisPublic
	}
}
