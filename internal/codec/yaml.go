package codec

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// Format identifies the YAML snapshot document layout.
const Format = "keybox/v1"

type fieldDoc struct {
	Name  string `yaml:"name" codec:"name"`
	Kind  string `yaml:"kind" codec:"kind"`
	Value string `yaml:"value" codec:"value"`
}

type recordDoc struct {
	UUID             string     `yaml:"uuid" codec:"uuid"`
	CreationTime     string     `yaml:"creation_time" codec:"creation_time"`
	ModificationTime string     `yaml:"modification_time" codec:"modification_time"`
	LastAccessTime   string     `yaml:"last_access_time" codec:"last_access_time"`
	DataMembers      []fieldDoc `yaml:"data_members" codec:"data_members"`
}

type containerDoc struct {
	Format    string `yaml:"format"`
	recordDoc `yaml:",inline"`
}

type entryDoc struct {
	Kind      string `yaml:"kind"`
	recordDoc `yaml:",inline"`
}

// YAML implements the container codec.
type YAML struct{}

// NewYAML creates a YAML codec.
func NewYAML() *YAML {
	return &YAML{}
}

// MarshalContainer encodes the container metadata record.
func (YAML) MarshalContainer(s record.Snapshot) ([]byte, error) {
	doc := containerDoc{Format: Format, recordDoc: encodeRecord(s)}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal container: %w", err)
	}
	return out, nil
}

// UnmarshalContainer decodes a container metadata record.
func (YAML) UnmarshalContainer(data []byte) (record.Snapshot, error) {
	var doc containerDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return record.Snapshot{}, model.NewValidationError("snapshot", err.Error())
	}
	if doc.Format != Format {
		return record.Snapshot{}, model.NewValidationError("snapshot", fmt.Sprintf("unsupported format %q", doc.Format))
	}
	return decodeRecord(doc.recordDoc)
}

// MarshalEntries encodes entries in collection order.
func (YAML) MarshalEntries(entries []entry.Snapshot) ([]byte, error) {
	docs := make([]entryDoc, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, entryDoc{Kind: string(e.Kind), recordDoc: encodeRecord(e.Record)})
	}
	out, err := yaml.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entries: %w", err)
	}
	return out, nil
}

// UnmarshalEntries decodes entries preserving order.
func (YAML) UnmarshalEntries(data []byte) ([]entry.Snapshot, error) {
	var docs []entryDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, model.NewValidationError("entries", err.Error())
	}
	out := make([]entry.Snapshot, 0, len(docs))
	for i, doc := range docs {
		r, err := decodeRecord(doc.recordDoc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, entry.Snapshot{Kind: entry.Kind(doc.Kind), Record: r})
	}
	return out, nil
}

func encodeRecord(s record.Snapshot) recordDoc {
	doc := recordDoc{
		UUID:             s.ID.String(),
		CreationTime:     formatTime(s.CreatedAt),
		ModificationTime: formatTime(s.ModifiedAt),
		LastAccessTime:   formatTime(s.AccessedAt),
		DataMembers:      make([]fieldDoc, 0, len(s.Fields)),
	}
	for _, f := range s.Fields {
		doc.DataMembers = append(doc.DataMembers, fieldDoc{Name: f.Name, Kind: f.Value.Kind().String(), Value: encodeValue(f.Value)})
	}
	return doc
}

func decodeRecord(doc recordDoc) (record.Snapshot, error) {
	id, err := uuid.Parse(doc.UUID)
	if err != nil {
		return record.Snapshot{}, model.NewValidationError("uuid", err.Error())
	}
	s := record.Snapshot{ID: id}
	for _, ts := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{record.FieldCreationTime, doc.CreationTime, &s.CreatedAt},
		{record.FieldModificationTime, doc.ModificationTime, &s.ModifiedAt},
		{record.FieldLastAccessTime, doc.LastAccessTime, &s.AccessedAt},
	} {
		t, err := time.Parse(time.RFC3339Nano, ts.raw)
		if err != nil {
			return record.Snapshot{}, model.NewValidationError(ts.name, err.Error())
		}
		*ts.dst = t
	}
	for _, f := range doc.DataMembers {
		v, err := decodeValue(f)
		if err != nil {
			return record.Snapshot{}, err
		}
		s.Fields = append(s.Fields, record.Field{Name: f.Name, Value: v})
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeValue(v record.Value) string {
	if b, ok := v.Bytes(); ok {
		return base64.StdEncoding.EncodeToString(b)
	}
	return v.String()
}

func decodeValue(f fieldDoc) (record.Value, error) {
	kind, err := record.ParseKind(f.Kind)
	if err != nil {
		return record.Unset, model.NewValidationError("field "+f.Name, err.Error())
	}
	switch kind {
	case record.KindString:
		return record.StringValue(f.Value), nil
	case record.KindBytes:
		b, err := base64.StdEncoding.DecodeString(f.Value)
		if err != nil {
			return record.Unset, model.NewValidationError("field "+f.Name, err.Error())
		}
		return record.BytesValue(b), nil
	case record.KindInt:
		n, err := strconv.ParseInt(f.Value, 10, 64)
		if err != nil {
			return record.Unset, model.NewValidationError("field "+f.Name, err.Error())
		}
		return record.IntValue(n), nil
	case record.KindBool:
		b, err := strconv.ParseBool(f.Value)
		if err != nil {
			return record.Unset, model.NewValidationError("field "+f.Name, err.Error())
		}
		return record.BoolValue(b), nil
	default:
		return record.Unset, nil
	}
}
