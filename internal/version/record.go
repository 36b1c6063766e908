package version

import (
	"fmt"
	"strings"
)

type (
	// ItemType distinguishes the kinds of entities whose versions a Window may hold.
	ItemType uint16
	// ObjectID is the stable identity shared by all versions of one entity.
	ObjectID int64
	// VersionNumber increases with each new version of an entity.
	VersionNumber uint32
	// ChangesetID identifies the change set that produced a version.
	ChangesetID uint32
)

const (
	Undefined ItemType = iota
	Node
	Way
	Relation
)

var itemTypeNames = [...]string{
	Undefined: "undefined",
	Node:      "node",
	Way:       "way",
	Relation:  "relation",
}

func (t ItemType) String() string {
	if int(t) < len(itemTypeNames) {
		return itemTypeNames[t]
	}
	return fmt.Sprintf("ItemType(%d)", uint16(t))
}

// ParseItemType recognizes the lowercase names that ItemType.String produces, along with their
// single-letter abbreviations ("n", "w", and "r").
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "node", "n":
		return Node, nil
	case "way", "w":
		return Way, nil
	case "relation", "r":
		return Relation, nil
	}
	return Undefined, fmt.Errorf("unrecognized item type %q", s)
}

// Record is the read-only view of one immutable version of an entity.
//
// Windows compare records by identity to detect the first and last versions of an entity, so
// implementations should be pointer types.
type Record interface {
	Type() ItemType
	ID() ObjectID
	Version() VersionNumber
	Changeset() ChangesetID
	// Timestamp reports when this version was created, and so when it became valid.
	Timestamp() Timestamp
	// Visible reports false for a version that marks the entity as deleted.
	Visible() bool
}
