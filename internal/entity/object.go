// Package entity provides the concrete record kind stored in the history store.
package entity

import (
	"fmt"
	"strconv"
	"strings"

	"sehlabs.com/history/internal/version"
)

// Key identifies an entity, independent of its versions.
type Key struct {
	Type version.ItemType
	ID   version.ObjectID
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.ID)
}

// ParseKey parses the "type/id" form that Key.String produces.
func ParseKey(s string) (Key, error) {
	typeName, idText, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("entity key %q lacks a \"/\" separator", s)
	}
	typ, err := version.ParseItemType(typeName)
	if err != nil {
		return Key{}, err
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("entity key %q has a malformed ID: %w", s, err)
	}
	return Key{Type: typ, ID: version.ObjectID(id)}, nil
}

// Attributes describes one version of an entity to New.
type Attributes struct {
	Type      version.ItemType
	ID        version.ObjectID
	Version   version.VersionNumber
	Changeset version.ChangesetID
	Timestamp version.Timestamp
	Deleted   bool
	User      string
	Tags      map[string]string
}

// Object is one immutable version of an entity.
type Object struct {
	key       Key
	version   version.VersionNumber
	changeset version.ChangesetID
	timestamp version.Timestamp
	visible   bool
	user      string
	tags      map[string]string
}

var _ version.Record = (*Object)(nil)

// New creates an entity version, copying the given tags.
func New(a Attributes) *Object {
	o := Object{
		key:       Key{Type: a.Type, ID: a.ID},
		version:   a.Version,
		changeset: a.Changeset,
		timestamp: a.Timestamp,
		visible:   !a.Deleted,
		user:      a.User,
	}
	if len(a.Tags) > 0 && !a.Deleted {
		o.tags = make(map[string]string, len(a.Tags))
		for k, v := range a.Tags {
			o.tags[k] = v
		}
	}
	return &o
}

// Tombstone creates the version that marks the entity of prev as deleted.
func Tombstone(prev *Object, v version.VersionNumber, changeset version.ChangesetID, ts version.Timestamp, user string) *Object {
	return New(Attributes{
		Type:      prev.key.Type,
		ID:        prev.key.ID,
		Version:   v,
		Changeset: changeset,
		Timestamp: ts,
		Deleted:   true,
		User:      user,
	})
}

func (o *Object) Key() Key { return o.key }
func (o *Object) Type() version.ItemType { return o.key.Type }
func (o *Object) ID() version.ObjectID { return o.key.ID }
func (o *Object) Version() version.VersionNumber { return o.version }
func (o *Object) Changeset() version.ChangesetID { return o.changeset }
func (o *Object) Timestamp() version.Timestamp { return o.timestamp }
func (o *Object) Visible() bool { return o.visible }
func (o *Object) User() string { return o.user }

// Tags returns a copy of the version's tags. Deleted versions carry none.
func (o *Object) Tags() map[string]string {
	tags := make(map[string]string, len(o.tags))
	for k, v := range o.tags {
		tags[k] = v
	}
	return tags
}

func (o *Object) String() string {
	state := "visible"
	if !o.visible {
		state = "deleted"
	}
	return fmt.Sprintf("%s v%d (%s at %s)", o.key, o.version, state, o.timestamp)
}
