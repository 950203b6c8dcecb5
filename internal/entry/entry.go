// Package entry defines the credential entries held by a container.
package entry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// Kind identifies an entry variant in snapshots.
type Kind string

const (
	KindAccount Kind = "account"
	KindHost    Kind = "host"
	KindURL     Kind = "url"
)

// Well-known field names.
const (
	FieldTitle          = "title"
	FieldUsername       = "username"
	FieldPassword       = "password"
	FieldHostname       = "hostname"
	FieldURL            = "url"
	FieldAdditionalInfo = "additional_info"
)

const privateMask = "***** private *****"

// Entry is a credential stored in a container.
type Entry interface {
	ID() uuid.UUID
	Kind() Kind
	// Attributes returns the record holding the entry's stored fields.
	Attributes() *record.Record
	// Fields lists the searchable and displayable fields of the entry.
	Fields() []string
	// PrivateFields lists the password-bearing fields.
	PrivateFields() []string
	// Value returns the text form of field, deriving it when the entry
	// computes that field instead of storing it.
	Value(field string) string
	Dirty() bool
	MarkClean()
}

// PassphraseReceiver is implemented by entries whose secrets are derived from
// the container passphrase.
type PassphraseReceiver interface {
	NeedsContainerPassphrase() bool
	SetContainerPassphrase(passphrase string)
}

// VisibleFields returns the fields of e that are not private.
func VisibleFields(e Entry) []string {
	private := e.PrivateFields()
	var out []string
	for _, f := range e.Fields() {
		if !slices.Contains(private, f) {
			out = append(out, f)
		}
	}
	return out
}

// Describe renders e one field per line, masking private fields.
func Describe(e Entry) string {
	fields := e.Fields()
	private := e.PrivateFields()

	width := 0
	for _, f := range fields {
		width = max(width, len(f))
	}

	var b strings.Builder
	for _, f := range fields {
		value := e.Value(f)
		if slices.Contains(private, f) {
			value = privateMask
		}
		fmt.Fprintf(&b, "%*s : %s\n", width+1, f, value)
	}
	return b.String()
}

// Snapshot is the serializable state of an entry.
type Snapshot struct {
	Kind   Kind
	Record record.Snapshot
}

// SnapshotOf captures e.
func SnapshotOf(e Entry) Snapshot {
	return Snapshot{Kind: e.Kind(), Record: e.Attributes().Snapshot()}
}

var variants = map[Kind]func(r *record.Record) Entry{
	KindAccount: func(r *record.Record) Entry { return &Account{Record: r} },
	KindHost:    func(r *record.Record) Entry { return &Host{Account: Account{Record: r}} },
	KindURL:     func(r *record.Record) Entry { return &URL{Account: Account{Record: r}} },
}

// FromSnapshot rebuilds the entry variant named by s.Kind.
func FromSnapshot(s Snapshot) (Entry, error) {
	build, ok := variants[s.Kind]
	if !ok {
		return nil, model.NewValidationError("entry kind", fmt.Sprintf("unknown kind %q", s.Kind))
	}
	r, err := record.Restore(s.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to restore entry %s: %w", s.Record.ID, err)
	}
	return build(r), nil
}

// fieldsWith returns declared followed by any other assigned names, sorted.
func fieldsWith(r *record.Record, declared []string) []string {
	out := slices.Clone(declared)
	var extra []string
	for _, name := range r.Names() {
		if !slices.Contains(declared, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// privateWith returns declared plus every field whose name mentions a password.
func privateWith(fields, declared []string) []string {
	out := slices.Clone(declared)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), FieldPassword) && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func set(r *record.Record, name, value string) {
	// names used here are constants and never reserved
	_ = r.SetString(name, value)
}
