package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors identify the first failing rule; callers block
// submission before any network call is made.
var (
	ErrMissingName         = errors.New("please enter your name")
	ErrMissingEmail        = errors.New("please enter your email address")
	ErrMalformedEmail      = errors.New("please enter a valid email address")
	ErrMissingMessage      = errors.New("please enter a message")
	ErrMissingItem         = errors.New("please choose a reward item")
	ErrMissingAddress      = errors.New("please enter a shipping address")
	ErrInsufficientBalance = errors.New("not enough tokens for this reward")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like a deliverable address
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ContactForm carries a user message to the site operators
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Validate returns the first failing rule, or nil when the form can be
// submitted.
func (f ContactForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(f.Email) == "" {
		return ErrMissingEmail
	}
	if !ValidEmail(f.Email) {
		return ErrMalformedEmail
	}
	if strings.TrimSpace(f.Message) == "" {
		return ErrMissingMessage
	}
	return nil
}

// RedemptionForm requests a merchandise reward in exchange for tokens
type RedemptionForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	ShippingAddress string `json:"shipping_address"`
	ItemID          string `json:"item_id"`
	TokenCost       int    `json:"token_cost"`
}

// Validate returns the first failing rule, checking the caller's token
// balance last.
func (f RedemptionForm) Validate(balance int) error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(f.Email) == "" {
		return ErrMissingEmail
	}
	if !ValidEmail(f.Email) {
		return ErrMalformedEmail
	}
	if strings.TrimSpace(f.ShippingAddress) == "" {
		return ErrMissingAddress
	}
	if strings.TrimSpace(f.ItemID) == "" {
		return ErrMissingItem
	}
	if f.TokenCost > balance {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, f.TokenCost, balance)
	}
	return nil
}
