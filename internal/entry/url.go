package entry

import (
	"github.com/dtroode/keybox/internal/passhash"
	"github.com/dtroode/keybox/internal/record"
)

var (
	_ Entry              = (*URL)(nil)
	_ PassphraseReceiver = (*URL)(nil)
)

var urlFields = []string{FieldTitle, FieldURL, FieldUsername, FieldAdditionalInfo}

// URL is a web account whose password is derived from the container
// passphrase and the URL host. The password is never stored.
type URL struct {
	Account
	composer *passhash.Composer
}

// NewURL creates a URL account.
func NewURL(title, rawURL, username string) *URL {
	u := &URL{Account: Account{Record: record.New()}}
	u.init(title, username)
	set(u.Record, FieldURL, rawURL)
	return u
}

func (u *URL) Kind() Kind {
	return KindURL
}

func (u *URL) Fields() []string {
	return fieldsWith(u.Record, urlFields)
}

func (u *URL) PrivateFields() []string {
	return privateWith(u.Fields(), []string{FieldPassword})
}

func (u *URL) Value(field string) string {
	if field == FieldPassword {
		return u.Password()
	}
	return u.GetString(field)
}

// URL returns the stored url.
func (u *URL) URL() string {
	return u.GetString(FieldURL)
}

// Password derives the password, or returns "" before the container
// passphrase is known or when the url has no host.
func (u *URL) Password() string {
	if u.composer == nil {
		return ""
	}
	pwd, err := u.composer.PasswordForURL(u.URL())
	if err != nil {
		return ""
	}
	return pwd
}

func (u *URL) NeedsContainerPassphrase() bool {
	return true
}

func (u *URL) SetContainerPassphrase(passphrase string) {
	if u.composer == nil {
		u.composer = passhash.NewComposer(passphrase)
		return
	}
	u.composer.SetMaster(passphrase)
}
