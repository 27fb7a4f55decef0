// Package fields is the registry of indexable message fields.
//
// Every field has a stable numeric ID that is written into the index, a
// query-syntax name and shortcut, a storage type, and a set of flags that
// decide how the indexer stores it and how the query engine searches it.
package fields

import (
	"fmt"
	"iter"

	"github.com/whunmr/mu/internal/logging"
)

// ID identifies a message field. The numeric values are persisted in the
// index: never reorder or reuse them, append new fields before NumFields.
type ID int

const (
	BodyText ID = iota
	BodyHTML
	Cc
	Date
	Flags
	From
	Path
	Maildir
	Prio
	Size
	Subject
	To
	MsgID
	Timestamp

	NumFields
)

// None is the "no field" sentinel.
const None ID = -1

// Type is the storage type of a field.
type Type int

const (
	TypeString Type = iota
	TypeByteSize
	TypeUnixTime
	TypeInteger

	numTypes
)

// TypeNone is returned for invalid field IDs.
const TypeNone Type = -1

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeByteSize:
		return "bytesize"
	case TypeUnixTime:
		return "time"
	case TypeInteger:
		return "int"
	default:
		return "none"
	}
}

// flag is a capability bit of a field.
type flag uint8

const (
	flagFullText flag = 1 << iota // tokenized into searchable terms
	flagTerm                      // stored as one exact-match term
	flagValue                     // stored as a sortable value
	flagContact                   // address as term, name tokenized
	flagMessage                   // read straight from the message
)

// Descriptor describes one field. Descriptors are immutable.
type Descriptor struct {
	ID       ID
	Name     string
	Shortcut byte
	Type     Type
	flags    flag
}

// fieldTable is indexed by ID.
var fieldTable = [NumFields]Descriptor{
	{BodyText, "body", 'b', TypeString, flagFullText | flagMessage},
	{BodyHTML, "bodyhtml", 'h', TypeString, flagMessage},
	{Cc, "cc", 'c', TypeString, flagContact | flagValue | flagMessage},
	{Date, "date", 'd', TypeUnixTime, flagValue | flagMessage},
	{Flags, "flag", 'g', TypeInteger, flagTerm | flagValue},
	{From, "from", 'f', TypeString, flagContact | flagValue | flagMessage},
	{Path, "path", 'l', TypeString, flagTerm | flagValue},
	{Maildir, "maildir", 'm', TypeString, flagTerm | flagValue},
	{Prio, "prio", 'p', TypeInteger, flagTerm | flagValue | flagMessage},
	{Size, "size", 'z', TypeByteSize, flagValue},
	{Subject, "subject", 's', TypeString, flagFullText | flagValue | flagMessage},
	{To, "to", 't', TypeString, flagContact | flagValue | flagMessage},
	{MsgID, "msgid", 'i', TypeString, flagTerm | flagValue | flagMessage},
	{Timestamp, "timestamp", 0, TypeUnixTime, flagValue},
}

// Valid reports whether id names a field.
func (id ID) Valid() bool {
	return id >= 0 && id < NumFields
}

func (id ID) String() string {
	if id == None {
		return "none"
	}
	if !id.Valid() {
		return fmt.Sprintf("invalid(%d)", int(id))
	}
	return fieldTable[id].Name
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	if !id.Valid() {
		return Descriptor{}, false
	}
	return fieldTable[id], true
}

func (d Descriptor) has(f flag) bool { return d.flags&f != 0 }

// IsNumeric reports whether the field holds a number.
func (d Descriptor) IsNumeric() bool {
	return d.Type == TypeByteSize || d.Type == TypeUnixTime || d.Type == TypeInteger
}

func (d Descriptor) FullTextIndexed() bool      { return d.has(flagFullText) }
func (d Descriptor) ExactTermIndexed() bool     { return d.has(flagTerm) }
func (d Descriptor) SortValueStored() bool      { return d.has(flagValue) }
func (d Descriptor) ContactIndexed() bool       { return d.has(flagContact) }
func (d Descriptor) DerivableFromMessage() bool { return d.has(flagMessage) }

// Searchable reports whether a query clause can target the field.
func (d Descriptor) Searchable() bool {
	return d.has(flagFullText|flagTerm|flagContact) || d.IsNumeric()
}

// TermPrefix is the one-letter tag for the field in canonical query text:
// the upper-cased shortcut, or 'X' for fields without one.
func (d Descriptor) TermPrefix() byte {
	if d.Shortcut == 0 {
		return 'X'
	}
	return d.Shortcut - 'a' + 'A'
}

// Name returns the query-syntax name of id, or "" if id is invalid.
func Name(id ID) string {
	d, _ := Lookup(id)
	return d.Name
}

// Shortcut returns the shortcut character of id, or 0.
func Shortcut(id ID) byte {
	d, _ := Lookup(id)
	return d.Shortcut
}

// TypeOf returns the storage type of id, or TypeNone.
func TypeOf(id ID) Type {
	d, ok := Lookup(id)
	if !ok {
		return TypeNone
	}
	return d.Type
}

// IsNumeric reports whether id is a numeric field.
func IsNumeric(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.IsNumeric()
}

// FullTextIndexed reports whether id is tokenized into searchable terms.
func FullTextIndexed(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.FullTextIndexed()
}

// ExactTermIndexed reports whether id is stored as one exact-match term.
func ExactTermIndexed(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.ExactTermIndexed()
}

// SortValueStored reports whether id can be used as a sort key.
func SortValueStored(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.SortValueStored()
}

// ContactIndexed reports whether id gets contact (address + name) indexing.
func ContactIndexed(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.ContactIndexed()
}

// DerivableFromMessage reports whether the message itself supplies id, as
// opposed to values derived at index time such as path or size.
func DerivableFromMessage(id ID) bool {
	d, ok := Lookup(id)
	return ok && d.DerivableFromMessage()
}

// LookupError is returned by strict lookups of an unknown name or shortcut.
type LookupError struct {
	Name     string
	Shortcut byte
}

func (e *LookupError) Error() string {
	if e.Shortcut != 0 {
		return fmt.Sprintf("unknown field shortcut %q", e.Shortcut)
	}
	return fmt.Sprintf("unknown field %q", e.Name)
}

// IDFromName returns the field whose canonical name equals name
// (case-sensitive). When nothing matches, a non-strict lookup returns None and
// a nil error; a strict lookup also logs at critical level and returns a
// *LookupError.
func IDFromName(name string, strict bool) (ID, error) {
	for i := range fieldTable {
		if fieldTable[i].Name == name {
			return fieldTable[i].ID, nil
		}
	}
	if !strict {
		return None, nil
	}
	logging.Critical(nil, "field lookup failed", "name", name)
	return None, &LookupError{Name: name}
}

// IDFromShortcut is IDFromName keyed on the shortcut character.
func IDFromShortcut(c byte, strict bool) (ID, error) {
	if c != 0 {
		for i := range fieldTable {
			if fieldTable[i].Shortcut == c {
				return fieldTable[i].ID, nil
			}
		}
	}
	if !strict {
		return None, nil
	}
	logging.Critical(nil, "field lookup failed", "shortcut", string(c))
	return None, &LookupError{Shortcut: c}
}

// Resolve looks s up as a name, then as a single-character shortcut.
// It never logs; unknown input yields a *LookupError.
func Resolve(s string) (ID, error) {
	if id, _ := IDFromName(s, false); id != None {
		return id, nil
	}
	if len(s) == 1 {
		if id, _ := IDFromShortcut(s[0], false); id != None {
			return id, nil
		}
	}
	return None, &LookupError{Name: s}
}

// ForEach calls fn once per field in ascending ID order. The order is stable
// across calls and releases.
func ForEach(fn func(ID)) {
	for id := ID(0); id < NumFields; id++ {
		fn(id)
	}
}

// All yields every field in ascending ID order.
func All() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for id := ID(0); id < NumFields; id++ {
			if !yield(id) {
				return
			}
		}
	}
}

// FullTextFields returns the fields searched by unscoped terms.
func FullTextFields() []ID {
	var ids []ID
	for id := range All() {
		if FullTextIndexed(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
