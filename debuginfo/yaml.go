package debuginfo

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

var modifierNames = map[string]Modifiers{
	"public":    ModPublic,
	"protected": ModProtected,
	"private":   ModPrivate,
	"static":    ModStatic,
	"synthetic": ModSynthetic,
}

// UnmarshalYAML accepts a list of modifier names, e.g. [public, static].
func (m *Modifiers) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("debuginfo: modifiers must be a list of names: %w", err)
	}
	*m = 0
	for _, n := range names {
		bit, ok := modifierNames[n]
		if !ok {
			return fmt.Errorf("debuginfo: unknown modifier %q at line %d", n, node.Line)
		}
		*m |= bit
	}
	return nil
}

// UnmarshalYAML accepts the names returned by TypeKind.String.
func (k *TypeKind) UnmarshalYAML(node *yaml.Node) error {
	for c := KindPrimitive; c <= KindHeader; c++ {
		if c.String() == node.Value {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("debuginfo: unknown type kind %q at line %d", node.Value, node.Line)
}

// UnmarshalYAML accepts "register" or "stack".
func (k *LocationKind) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "register":
		*k = LocationRegister
	case "stack":
		*k = LocationStack
	default:
		return fmt.Errorf("debuginfo: unknown location kind %q at line %d", node.Value, node.Line)
	}
	return nil
}
