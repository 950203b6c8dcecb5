package container

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/random"
	"github.com/dtroode/keybox/internal/record"
)

// Loader opens containers from a snapshot store.
type Loader struct {
	source model.RandomSource
	codec  Codec
	files  model.SnapshotStore
	params Params
}

// NewLoader creates a Loader. Unknown algorithm tokens in params are a
// configuration error.
func NewLoader(source model.RandomSource, codec Codec, files model.SnapshotStore, params Params) (*Loader, error) {
	p, err := params.resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve container params: %w", err)
	}
	return &Loader{
		source: source,
		codec:  codec,
		files:  files,
		params: p,
	}, nil
}

// Params returns the resolved parameters for new containers.
func (l *Loader) Params() Params {
	return l.params
}

// Open loads the container stored at path, or creates a fresh one when
// nothing is stored there yet. On failure no container is returned.
func (l *Loader) Open(passphrase, path string) (*Container, error) {
	data, err := l.files.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	c := &Container{loader: l, path: path, state: StateLoading}
	if len(bytes.TrimSpace(data)) == 0 {
		if err := c.initialize(passphrase); err != nil {
			return nil, err
		}
	} else if err := c.load(passphrase, data); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	c.state = StateReady
	return c, nil
}

func (l *Loader) newID() (uuid.UUID, error) {
	return uuid.NewRandomFromReader(random.NewReader(l.source))
}

// initialize sets up a fresh container with new crypto material.
func (c *Container) initialize(passphrase string) error {
	p := c.loader.params
	if err := p.checkStrength(passphrase); err != nil {
		return err
	}

	id, err := c.loader.newID()
	if err != nil {
		return fmt.Errorf("failed to generate container id: %w", err)
	}

	c.meta = record.NewWithID(id)
	c.suite = suite{
		iterations:   p.Iterations,
		cipher:       p.Cipher,
		keyDigest:    p.Digest,
		recordDigest: p.Digest,
	}
	if err := writeSuite(c.meta, c.suite); err != nil {
		return err
	}
	if err := c.rotate(passphrase); err != nil {
		return err
	}
	c.state = StateFresh
	return nil
}

// load authenticates passphrase against the snapshot and decrypts the entries.
func (c *Container) load(passphrase string, data []byte) error {
	snap, err := c.loader.codec.UnmarshalContainer(data)
	if err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	meta, err := record.Restore(snap)
	if err != nil {
		return fmt.Errorf("failed to restore metadata: %w", err)
	}
	c.meta = meta

	m, err := readMaterial(meta)
	if err != nil {
		return err
	}
	c.suite = m.suite

	key := algorithm.DeriveKey(m.keyDigest, m.keySalt, passphrase, m.iterations)
	if !hexEqual(m.keyDigest.HexSum(key), m.keyVerifier) {
		c.state = StateAuthFailed
		return model.ErrWrongPassphrase
	}

	plaintext, err := m.cipher.Decrypt(key, m.iv, m.data)
	if err != nil {
		c.state = StateIntegrityFailed
		if errors.Is(err, algorithm.ErrMalformedCiphertext) {
			return fmt.Errorf("%w: %w", model.ErrIntegrityMismatch, err)
		}
		return err
	}
	if !hexEqual(m.recordDigest.HexSum(m.recordSalt, plaintext), m.recordVerifier) {
		c.state = StateIntegrityFailed
		return model.ErrIntegrityMismatch
	}

	snaps, err := c.loader.codec.UnmarshalEntries(plaintext)
	if err != nil {
		return fmt.Errorf("failed to decode entries: %w", err)
	}
	entries := make([]entry.Entry, 0, len(snaps))
	for _, s := range snaps {
		e, err := entry.FromSnapshot(s)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	c.key = key
	c.passphrase = passphrase
	c.entries = entries
	for _, e := range c.entries {
		c.inject(e)
	}
	c.state = StateValidated
	return nil
}

// hexEqual compares two hex digests by value, so letter case does not matter.
func hexEqual(a, b string) bool {
	ab, err := hex.DecodeString(a)
	if err != nil {
		return false
	}
	bb, err := hex.DecodeString(b)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}
