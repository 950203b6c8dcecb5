package entry

import "github.com/dtroode/keybox/internal/record"

var _ Entry = (*Host)(nil)

var hostFields = []string{FieldTitle, FieldHostname, FieldUsername, FieldPassword, FieldAdditionalInfo}

// Host is a login account on a machine. Its password is stored.
type Host struct {
	Account
}

// NewHost creates a host account.
func NewHost(title, hostname, username, password string) *Host {
	h := &Host{Account: Account{Record: record.New()}}
	h.init(title, username)
	set(h.Record, FieldHostname, hostname)
	set(h.Record, FieldPassword, password)
	return h
}

func (h *Host) Kind() Kind {
	return KindHost
}

func (h *Host) Fields() []string {
	return fieldsWith(h.Record, hostFields)
}

func (h *Host) PrivateFields() []string {
	return privateWith(h.Fields(), []string{FieldPassword})
}

func (h *Host) Hostname() string {
	return h.GetString(FieldHostname)
}

func (h *Host) Password() string {
	return h.GetString(FieldPassword)
}
