// Package codec serializes container and entry snapshots.
package codec

import (
	"errors"

	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// Codec is implemented by every snapshot encoding.
type Codec interface {
	MarshalContainer(s record.Snapshot) ([]byte, error)
	UnmarshalContainer(data []byte) (record.Snapshot, error)
	MarshalEntries(entries []entry.Snapshot) ([]byte, error)
	UnmarshalEntries(data []byte) ([]entry.Snapshot, error)
}

var (
	_ Codec = (*YAML)(nil)
	_ Codec = (*MsgPack)(nil)
)

// ByName returns the codec for a configured format name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "yaml":
		return NewYAML(), nil
	case "msgpack":
		return NewMsgPack(), nil
	default:
		return nil, model.NewConfigurationError("snapshot format", name, errors.New("unknown format"))
	}
}
