package reservations

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrContactRequired = errors.New("reservations: guest or walk-in contact required")
	ErrInvalidEmail    = errors.New("reservations: contact email is invalid")
)

type ContactKind string

const (
	ContactRegistered ContactKind = "registered"
	ContactWalkIn     ContactKind = "walk-in"
)

// Contact identifies who the reservation is for: either a registered guest
// account or a walk-in described inline.
type Contact struct {
	Kind    ContactKind
	GuestID string
	Name    string
	Email   string
	Phone   string
}

// Registered references an existing guest account. Name and email are kept
// so mails can be sent without a guest lookup.
func Registered(guestID, name, email string) Contact {
	return Contact{
		Kind:    ContactRegistered,
		GuestID: strings.TrimSpace(guestID),
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
	}
}

func WalkIn(name, email, phone string) Contact {
	return Contact{
		Kind:  ContactWalkIn,
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Phone: strings.TrimSpace(phone),
	}
}

func (c Contact) Validate() error {
	switch c.Kind {
	case ContactRegistered:
		if c.GuestID == "" {
			return ErrContactRequired
		}
	case ContactWalkIn:
		if c.Name == "" || (c.Email == "" && c.Phone == "") {
			return ErrContactRequired
		}
	default:
		return ErrContactRequired
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

// MailTo returns the address notifications go to, or "" when none is known.
func (c Contact) MailTo() string {
	return c.Email
}
