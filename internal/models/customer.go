package models

import "time"

// Customer mirrors the contact fields the engine needs from the customer
// data model, which is owned elsewhere
type Customer struct {
	ID                int       `json:"id" db:"id"`
	FirstName         *string   `json:"first_name,omitempty" db:"first_name"`
	LastName          *string   `json:"last_name,omitempty" db:"last_name"`
	Phone             *string   `json:"phone,omitempty" db:"phone"`
	Email             *string   `json:"email,omitempty" db:"email"`
	PreferredLanguage *string   `json:"preferred_language,omitempty" db:"preferred_language"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// FullName returns the customer's full name
func (c *Customer) FullName() string {
	var firstName, lastName string

	if c.FirstName != nil {
		firstName = *c.FirstName
	}
	if c.LastName != nil {
		lastName = *c.LastName
	}

	if firstName != "" && lastName != "" {
		return firstName + " " + lastName
	}
	if firstName != "" {
		return firstName
	}
	if lastName != "" {
		return lastName
	}
	return "Customer"
}

// RecipientFor returns the customer's contact for the given channel,
// or an empty string when it is not on file
func (c *Customer) RecipientFor(channel Channel) string {
	switch channel {
	case ChannelSMS:
		if c.Phone != nil {
			return *c.Phone
		}
	case ChannelEmail:
		if c.Email != nil {
			return *c.Email
		}
	}
	return ""
}
