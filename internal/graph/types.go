package graph

type NodeKind string

const (
	KindUnit    NodeKind = "unit"
	KindType    NodeKind = "type"
	KindUnknown NodeKind = "unknown"
)

type RelationKind string

const (
	// RelationImports links a generated unit to a sibling it imports from.
	RelationImports RelationKind = "imports"
	// RelationReferences links an original type to a type its fields or
	// behavior mention.
	RelationReferences RelationKind = "references"
)
