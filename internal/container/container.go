// Package container implements the encrypted credential container: key
// derivation, authentication before decryption, integrity validation of the
// decrypted entries and passphrase rotation.
package container

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// State is a step of the container lifecycle.
type State uint8

const (
	StateUninitialized State = iota
	StateLoading
	StateFresh
	StateValidated
	StateReady
	StateSaving
	StateRotating
	StateAuthFailed
	StateIntegrityFailed
)

var stateNames = [...]string{
	StateUninitialized:   "uninitialized",
	StateLoading:         "loading",
	StateFresh:           "fresh",
	StateValidated:       "validated",
	StateReady:           "ready",
	StateSaving:          "saving",
	StateRotating:        "rotating",
	StateAuthFailed:      "auth failed",
	StateIntegrityFailed: "integrity failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Container holds decrypted entries together with the crypto metadata needed
// to persist them again. It is not safe for concurrent use.
type Container struct {
	loader *Loader
	meta   *record.Record
	suite  suite

	key        []byte
	passphrase string
	path       string
	state      State

	entries         []entry.Entry
	membershipDirty bool
}

func (c *Container) usable() error {
	if c == nil || c.state != StateReady {
		return model.ErrUnusable
	}
	return nil
}

// ID returns the container identifier.
func (c *Container) ID() uuid.UUID {
	if c.meta == nil {
		return uuid.Nil
	}
	return c.meta.ID()
}

// Path returns the path the container was opened from.
func (c *Container) Path() string { return c.path }

func (c *Container) State() State { return c.state }

// Entries returns the entries in collection order.
func (c *Container) Entries() []entry.Entry { return slices.Clone(c.entries) }

func (c *Container) Len() int { return len(c.entries) }

// Get returns the entry with id.
func (c *Container) Get(id uuid.UUID) (entry.Entry, bool) {
	i := c.index(id)
	if i < 0 {
		return nil, false
	}
	return c.entries[i], true
}

// Metadata returns a snapshot of the container's metadata record.
func (c *Container) Metadata() record.Snapshot {
	if c.meta == nil {
		return record.Snapshot{}
	}
	return c.meta.Snapshot()
}

// Add appends e to the collection. An entry with the same identifier must not
// already be present.
func (c *Container) Add(e entry.Entry) error {
	if err := c.usable(); err != nil {
		return err
	}
	if e == nil {
		return model.NewValidationError("entry", "nil entry")
	}
	if c.index(e.ID()) >= 0 {
		return model.NewValidationError("entry", fmt.Sprintf("duplicate id %s", e.ID()))
	}
	c.inject(e)
	c.entries = append(c.entries, e)
	c.membershipDirty = true
	return nil
}

// Delete removes the entry with the identifier of e.
func (c *Container) Delete(e entry.Entry) (bool, error) {
	if e == nil {
		return false, model.NewValidationError("entry", "nil entry")
	}
	return c.DeleteByID(e.ID())
}

// DeleteByID removes the entry with id and reports whether one was removed.
func (c *Container) DeleteByID(id uuid.UUID) (bool, error) {
	if err := c.usable(); err != nil {
		return false, err
	}
	i := c.index(id)
	if i < 0 {
		return false, nil
	}
	c.entries = slices.Delete(c.entries, i, i+1)
	c.membershipDirty = true
	return true, nil
}

// Find returns entries where any of fields contains query, ignoring case.
// Without fields each entry is searched on its non-private fields.
func (c *Container) Find(query string, fields ...string) ([]entry.Entry, error) {
	needle := strings.ToLower(query)
	return c.match(func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle)
	}, fields)
}

// FindPattern is Find with a case-insensitive regular expression.
func (c *Container) FindPattern(pattern string, fields ...string) ([]entry.Entry, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, model.NewValidationError("pattern", err.Error())
	}
	return c.match(re.MatchString, fields)
}

func (c *Container) match(matches func(string) bool, fields []string) ([]entry.Entry, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}

	var out []entry.Entry
	for _, e := range c.entries {
		scope := fields
		if len(scope) == 0 {
			scope = entry.VisibleFields(e)
		}
		for _, f := range scope {
			if matches(e.Value(f)) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

// Modified reports whether anything changed since the last load or save.
func (c *Container) Modified() bool {
	if c.meta == nil {
		return false
	}
	if c.meta.Dirty() || c.membershipDirty {
		return true
	}
	for _, e := range c.entries {
		if e.Dirty() {
			return true
		}
	}
	return false
}

// Save encrypts the entries and writes the snapshot to the origin path.
func (c *Container) Save() error {
	return c.SaveAs(c.path)
}

// SaveAs writes the snapshot to path. The origin path is unchanged.
func (c *Container) SaveAs(path string) error {
	if err := c.usable(); err != nil {
		return err
	}
	c.state = StateSaving
	defer func() { c.state = StateReady }()

	snaps := make([]entry.Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		snaps = append(snaps, entry.SnapshotOf(e))
	}
	plaintext, err := c.loader.codec.MarshalEntries(snaps)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	salt := c.meta.GetBytes(FieldRecordDigestSalt)
	iv := c.meta.GetBytes(FieldRecordInitVector)
	ciphertext, err := c.suite.cipher.Encrypt(c.key, iv, plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt entries: %w", err)
	}
	if err := c.meta.SetString(FieldRecordDigest, c.suite.recordDigest.HexSum(salt, plaintext)); err != nil {
		return err
	}
	if err := c.meta.SetBytes(FieldRecordData, ciphertext); err != nil {
		return err
	}

	data, err := c.loader.codec.MarshalContainer(c.meta.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.loader.files.Write(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	c.meta.MarkClean()
	c.membershipDirty = false
	for _, e := range c.entries {
		e.MarkClean()
	}
	return nil
}

// SetPassphrase replaces the passphrase and regenerates salts, IV and key
// verifier. The stored snapshot keeps the old key until the next save.
func (c *Container) SetPassphrase(passphrase string) error {
	if err := c.usable(); err != nil {
		return err
	}
	if err := c.loader.params.checkStrength(passphrase); err != nil {
		return err
	}
	c.state = StateRotating
	defer func() { c.state = StateReady }()

	return c.rotate(passphrase)
}

// rotate draws new crypto material for passphrase. Nothing is changed unless
// every random draw succeeds.
func (c *Container) rotate(passphrase string) error {
	src := c.loader.source
	keySalt, err := src.RandomBytes(saltSize)
	if err != nil {
		return fmt.Errorf("failed to generate key salt: %w", err)
	}
	recordSalt, err := src.RandomBytes(saltSize)
	if err != nil {
		return fmt.Errorf("failed to generate records salt: %w", err)
	}
	iv, err := src.RandomBytes(c.suite.cipher.IVSize())
	if err != nil {
		return fmt.Errorf("failed to generate init vector: %w", err)
	}

	key := algorithm.DeriveKey(c.suite.keyDigest, keySalt, passphrase, c.suite.iterations)
	for _, f := range []record.Field{
		{Name: FieldKeyDigestSalt, Value: record.BytesValue(keySalt)},
		{Name: FieldKeyDigest, Value: record.StringValue(c.suite.keyDigest.HexSum(key))},
		{Name: FieldRecordDigestSalt, Value: record.BytesValue(recordSalt)},
		{Name: FieldRecordInitVector, Value: record.BytesValue(iv)},
	} {
		if err := c.meta.Set(f.Name, f.Value); err != nil {
			return fmt.Errorf("failed to set %s: %w", f.Name, err)
		}
	}

	c.key = key
	c.passphrase = passphrase
	for _, e := range c.entries {
		c.inject(e)
	}
	return nil
}

func (c *Container) inject(e entry.Entry) {
	if r, ok := e.(entry.PassphraseReceiver); ok && r.NeedsContainerPassphrase() {
		r.SetContainerPassphrase(c.passphrase)
	}
}

func (c *Container) index(id uuid.UUID) int {
	return slices.IndexFunc(c.entries, func(e entry.Entry) bool { return e.ID() == id })
}
