package openwire

import "strings"

// RefType is the kind of unit a ComponentRef points at.
type RefType string

const (
	RefComponent RefType = "component"
	RefLegacy    RefType = "legacy"
)

// ComponentRef identifies a component or a legacy block, optionally scoped to
// a layout handle and an instance key. Its string form is
// type:alias[:handle][:instanceKey].
//
// Refs are immutable. The type is not checked on construction; an unknown
// type fails when the ref is resolved.
type ComponentRef struct {
	typ         RefType
	alias       string
	handle      string
	instanceKey string
}

// NewRef builds a ref from explicit fields. The optional scope holds the
// handle and then the instance key.
func NewRef(typ RefType, alias string, scope ...string) ComponentRef {
	ref := ComponentRef{typ: typ, alias: alias}
	if len(scope) > 0 {
		ref.handle = scope[0]
	}
	if len(scope) > 1 {
		ref.instanceKey = scope[1]
	}
	return ref
}

// ParseRef parses a colon-delimited ref string. At most four parts are
// split off, so an instance key may itself contain colons.
func ParseRef(s string) (ComponentRef, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 2 || parts[1] == "" {
		return ComponentRef{}, invalidInput("Invalid component ref string")
	}
	ref := ComponentRef{typ: RefType(parts[0]), alias: parts[1]}
	if len(parts) > 2 {
		ref.handle = parts[2]
	}
	if len(parts) > 3 {
		ref.instanceKey = parts[3]
	}
	return ref, nil
}

// ID returns the deterministic identifier type:alias[:handle][:instanceKey].
// Empty optional parts are skipped.
func (r ComponentRef) ID() string {
	id := string(r.typ) + ":" + r.alias
	if r.handle != "" {
		id += ":" + r.handle
	}
	if r.instanceKey != "" {
		id += ":" + r.instanceKey
	}
	return id
}

func (r ComponentRef) String() string {
	return r.ID()
}

func (r ComponentRef) Type() RefType {
	return r.typ
}

func (r ComponentRef) Alias() string {
	return r.alias
}

func (r ComponentRef) Handle() string {
	return r.handle
}

func (r ComponentRef) InstanceKey() string {
	return r.instanceKey
}

// IsLegacy reports whether the ref points at a legacy block.
func (r ComponentRef) IsLegacy() bool {
	return r.typ == RefLegacy
}
