// Package passhash derives per-site passwords from a master passphrase.
package passhash

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
)

const passwordLength = 9

// Composer derives a password for a site from the master passphrase: the
// first nine hex characters of SHA-1("master:site").
type Composer struct {
	master string
}

// NewComposer returns a Composer keyed by master.
func NewComposer(master string) *Composer {
	return &Composer{master: master}
}

// SetMaster replaces the master passphrase.
func (c *Composer) SetMaster(master string) {
	c.master = master
}

// PasswordFor derives the password for site.
func (c *Composer) PasswordFor(site string) string {
	sum := sha1.Sum([]byte(c.master + ":" + site))
	return hex.EncodeToString(sum[:])[:passwordLength]
}

// PasswordForURL derives the password for the host part of rawURL.
func (c *Composer) PasswordForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return c.PasswordFor(u.Hostname()), nil
}
