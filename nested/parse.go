package nested

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned for literals that are not a tree of
// sequences and scalars.
var ErrMalformed = errors.New("nested: malformed literal")

// Parse reads a tree literal. Any YAML sequence form is accepted, so
// the flow form [1, [[2, 3], [4, 5]], [6, 7, 8]] parses as a node of
// three children. Scalars become leaves holding their text; a bare
// scalar document is a single leaf.
func Parse(src []byte) (Value[string], error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return Value[string]{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return Value[string]{}, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	return fromYAML(doc.Content[0])
}

// MustParse is Parse for literals known to be valid. It panics on
// error.
func MustParse(src string) Value[string] {
	v, err := Parse([]byte(src))
	if err != nil {
		panic(err)
	}
	return v
}

func fromYAML(n *yaml.Node) (Value[string], error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Leaf(n.Value), nil
	case yaml.SequenceNode:
		children := make([]Value[string], 0, len(n.Content))
		for _, c := range n.Content {
			child, err := fromYAML(c)
			if err != nil {
				return Value[string]{}, err
			}
			children = append(children, child)
		}
		return Value[string]{children: children}, nil
	default:
		return Value[string]{}, fmt.Errorf("%w: unexpected %s at line %d", ErrMalformed, kindName(n.Kind), n.Line)
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "node"
	}
}
