package container

import (
	"fmt"
	"unicode/utf8"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

const (
	// Version is written to the version field of new containers.
	Version = "1"
	// DefaultIterations is the key derivation iteration count of new containers.
	DefaultIterations = 2048
	// DefaultMinPassphraseLength is the minimum passphrase length in characters.
	DefaultMinPassphraseLength = 4

	saltSize = 32
)

// Codec serializes container metadata and the entry collection.
type Codec interface {
	MarshalContainer(s record.Snapshot) ([]byte, error)
	UnmarshalContainer(data []byte) (record.Snapshot, error)
	MarshalEntries(entries []entry.Snapshot) ([]byte, error)
	UnmarshalEntries(data []byte) ([]entry.Snapshot, error)
}

// Params controls how new containers are created. Existing containers keep
// the iteration count and algorithms recorded in their snapshot.
type Params struct {
	Iterations          int
	MinPassphraseLength int
	Cipher              algorithm.Cipher
	Digest              algorithm.Digest
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Iterations:          DefaultIterations,
		MinPassphraseLength: DefaultMinPassphraseLength,
		Cipher:              algorithm.DefaultCipher,
	}
}

// resolve fills the digest from the preference order and validates tokens.
func (p Params) resolve() (Params, error) {
	if p.Iterations <= 0 {
		return p, model.NewConfigurationError("key calc iterations", fmt.Sprint(p.Iterations), nil)
	}
	if p.MinPassphraseLength < 0 {
		return p, model.NewConfigurationError("min passphrase length", fmt.Sprint(p.MinPassphraseLength), nil)
	}

	c, err := algorithm.LookupCipher(p.Cipher.String())
	if err != nil {
		return p, err
	}
	p.Cipher = c

	if p.Digest == "" {
		d, err := algorithm.DefaultDigest()
		if err != nil {
			return p, err
		}
		p.Digest = d
		return p, nil
	}
	d, err := algorithm.LookupDigest(p.Digest.String())
	if err != nil {
		return p, err
	}
	p.Digest = d
	return p, nil
}

func (p Params) checkStrength(passphrase string) error {
	if utf8.RuneCountInString(passphrase) < p.MinPassphraseLength {
		return model.NewValidationError("passphrase",
			fmt.Sprintf("must be at least %d characters long", p.MinPassphraseLength))
	}
	return nil
}
