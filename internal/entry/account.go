package entry

import (
	"github.com/dtroode/keybox/internal/record"
)

var _ Entry = (*Account)(nil)

// Account is a generic entry with free-form fields.
type Account struct {
	*record.Record
}

// NewAccount creates an account with a title and username.
func NewAccount(title, username string) *Account {
	a := &Account{Record: record.New()}
	a.init(title, username)
	return a
}

func (a *Account) init(title, username string) {
	set(a.Record, FieldTitle, title)
	set(a.Record, FieldUsername, username)
	set(a.Record, FieldAdditionalInfo, "")
}

func (a *Account) Kind() Kind {
	return KindAccount
}

func (a *Account) Attributes() *record.Record {
	return a.Record
}

func (a *Account) Fields() []string {
	return fieldsWith(a.Record, nil)
}

func (a *Account) PrivateFields() []string {
	return privateWith(a.Fields(), nil)
}

func (a *Account) Value(field string) string {
	return a.GetString(field)
}

func (a *Account) Title() string {
	return a.GetString(FieldTitle)
}

func (a *Account) Username() string {
	return a.GetString(FieldUsername)
}
