package codec

import (
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// MsgPackFormat identifies the MessagePack snapshot layout.
const MsgPackFormat = "keybox/msgpack/v1"

type msgContainer struct {
	Format string    `codec:"format"`
	Record recordDoc `codec:"record"`
}

type msgEntry struct {
	Kind   string    `codec:"kind"`
	Record recordDoc `codec:"record"`
}

// MsgPack is a compact binary codec. Field values use the same text forms
// as the YAML codec.
type MsgPack struct{}

func NewMsgPack() *MsgPack {
	return &MsgPack{}
}

func (MsgPack) MarshalContainer(s record.Snapshot) ([]byte, error) {
	out, err := encodeMsgPack(msgContainer{Format: MsgPackFormat, Record: encodeRecord(s)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal container: %w", err)
	}
	return out, nil
}

func (MsgPack) UnmarshalContainer(data []byte) (record.Snapshot, error) {
	var doc msgContainer
	if err := decodeMsgPack(data, &doc); err != nil {
		return record.Snapshot{}, model.NewValidationError("snapshot", err.Error())
	}
	if doc.Format != MsgPackFormat {
		return record.Snapshot{}, model.NewValidationError("snapshot", fmt.Sprintf("unsupported format %q", doc.Format))
	}
	return decodeRecord(doc.Record)
}

func (MsgPack) MarshalEntries(entries []entry.Snapshot) ([]byte, error) {
	docs := make([]msgEntry, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, msgEntry{Kind: string(e.Kind), Record: encodeRecord(e.Record)})
	}
	out, err := encodeMsgPack(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entries: %w", err)
	}
	return out, nil
}

func (MsgPack) UnmarshalEntries(data []byte) ([]entry.Snapshot, error) {
	var docs []msgEntry
	if err := decodeMsgPack(data, &docs); err != nil {
		return nil, model.NewValidationError("entries", err.Error())
	}
	out := make([]entry.Snapshot, 0, len(docs))
	for i, doc := range docs {
		r, err := decodeRecord(doc.Record)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, entry.Snapshot{Kind: entry.Kind(doc.Kind), Record: r})
	}
	return out, nil
}

func encodeMsgPack(v any) ([]byte, error) {
	var (
		out []byte
		mh  codec.MsgpackHandle
	)
	enc := codec.NewEncoderBytes(&out, &mh)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeMsgPack(data []byte, v any) error {
	var mh codec.MsgpackHandle
	dec := codec.NewDecoderBytes(data, &mh)
	return dec.Decode(v)
}
