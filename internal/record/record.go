// Package record implements the attribute-tracked entity that backs both
// container metadata and entries.
package record

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/model"
)

// Reserved field names. They describe the record itself and can not be
// assigned through Set.
const (
	FieldUUID             = "uuid"
	FieldCreationTime     = "creation_time"
	FieldModificationTime = "modification_time"
	FieldLastAccessTime   = "last_access_time"
	FieldDataMembers      = "data_members"
)

var reserved = []string{FieldUUID, FieldCreationTime, FieldModificationTime, FieldLastAccessTime, FieldDataMembers}

// IsReserved reports whether name is a reserved field name.
func IsReserved(name string) bool {
	return slices.Contains(reserved, name)
}

func now() time.Time {
	return time.Now().UTC()
}

// Record is an ordered bag of named values with creation, modification and
// access timestamps. Not safe for concurrent use.
type Record struct {
	id         uuid.UUID
	createdAt  time.Time
	modifiedAt time.Time
	accessedAt time.Time
	dirty      bool

	names  []string
	values map[string]Value

	clock func() time.Time
}

// New creates an empty record with a random identifier.
func New() *Record {
	return NewWithID(uuid.New())
}

// NewWithID creates an empty record with the given identifier.
func NewWithID(id uuid.UUID) *Record {
	r := &Record{id: id, values: make(map[string]Value), clock: now}
	r.createdAt = r.clock()
	r.modifiedAt = r.createdAt
	r.accessedAt = r.createdAt
	return r
}

func (r *Record) ID() uuid.UUID { return r.id }
func (r *Record) CreatedAt() time.Time { return r.createdAt }
func (r *Record) ModifiedAt() time.Time { return r.modifiedAt }
func (r *Record) AccessedAt() time.Time { return r.accessedAt }
func (r *Record) Dirty() bool { return r.dirty }

// MarkClean clears the dirty flag.
func (r *Record) MarkClean() {
	r.dirty = false
}

// Get returns the value of name, or Unset, and stamps the access time.
func (r *Record) Get(name string) Value {
	r.accessedAt = r.clock()
	return r.values[name]
}

// Set stores v under name, stamps modification and access time and marks
// the record dirty.
func (r *Record) Set(name string, v Value) error {
	if IsReserved(name) {
		return fmt.Errorf("failed to set %q: %w", name, model.ErrReservedField)
	}
	if name == "" {
		return model.NewValidationError("field name", "must not be empty")
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
	r.modifiedAt = r.clock()
	r.accessedAt = r.modifiedAt
	r.dirty = true
	return nil
}

func (r *Record) SetString(name, s string) error { return r.Set(name, StringValue(s)) }
func (r *Record) SetBytes(name string, b []byte) error { return r.Set(name, BytesValue(b)) }
func (r *Record) SetInt(name string, n int64) error { return r.Set(name, IntValue(n)) }

// GetString returns the text form of name.
func (r *Record) GetString(name string) string {
	return r.Get(name).String()
}

// GetBytes returns the bytes stored under name, or nil.
func (r *Record) GetBytes(name string) []byte {
	b, _ := r.Get(name).Bytes()
	return b
}

// GetInt returns the integer stored under name and whether it was an int.
func (r *Record) GetInt(name string) (int64, bool) {
	return r.Get(name).Int()
}

// Has reports whether name has been assigned. It does not stamp access.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Names returns assigned field names in assignment order.
func (r *Record) Names() []string {
	return slices.Clone(r.names)
}

// Equal compares identity only.
func (r *Record) Equal(o *Record) bool {
	return o != nil && r.id == o.id
}

// HasID reports whether the record carries id.
func (r *Record) HasID(id uuid.UUID) bool {
	return r.id == id
}

// Field is one named value in a Snapshot.
type Field struct {
	Name  string
	Value Value
}

// Snapshot is the serializable state of a record.
type Snapshot struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	ModifiedAt time.Time
	AccessedAt time.Time
	Fields     []Field
}

// Snapshot captures the record without touching its timestamps.
func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		ID:         r.id,
		CreatedAt:  r.createdAt,
		ModifiedAt: r.modifiedAt,
		AccessedAt: r.accessedAt,
		Fields:     make([]Field, 0, len(r.names)),
	}
	for _, name := range r.names {
		s.Fields = append(s.Fields, Field{Name: name, Value: r.values[name]})
	}
	return s
}

// Restore rebuilds a clean record from s.
func Restore(s Snapshot) (*Record, error) {
	r := &Record{
		id:         s.ID,
		createdAt:  s.CreatedAt,
		modifiedAt: s.ModifiedAt,
		accessedAt: s.AccessedAt,
		values:     make(map[string]Value, len(s.Fields)),
		clock:      now,
	}
	for _, f := range s.Fields {
		if IsReserved(f.Name) {
			return nil, fmt.Errorf("failed to restore %q: %w", f.Name, model.ErrReservedField)
		}
		if _, dup := r.values[f.Name]; dup {
			return nil, model.NewValidationError("field "+f.Name, "appears twice")
		}
		r.names = append(r.names, f.Name)
		r.values[f.Name] = f.Value
	}
	return r, nil
}
