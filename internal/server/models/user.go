package models

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/secure-doc/imagey-cloud/internal/common"
)

// User is identified solely by its email address.
type User struct {
	Email string `json:"email"`
}

// Registration carries everything a client sends to finish sign-up. Key
// payloads are opaque to the server and stored verbatim.
type Registration struct {
	Email               string `json:"email"`
	DeviceID            string `json:"deviceId"`
	MainPublicKey       string `json:"mainPublicKey"`
	DevicePublicKey     string `json:"devicePublicKey,omitempty"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
}

func (r Registration) User() User {
	return User{Email: r.Email}
}

// Validate checks that the fields required to store the initial keys are set.
func (r Registration) Validate() error {
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		return fmt.Errorf("%w: device id is empty", common.ErrorValidation)
	}
	if r.MainPublicKey == "" {
		return fmt.Errorf("%w: main public key is empty", common.ErrorValidation)
	}
	if r.EncryptedPrivateKey == "" {
		return fmt.Errorf("%w: encrypted private key is empty", common.ErrorValidation)
	}
	return nil
}

// ValidateEmail accepts a bare address ("alice@example.com") only.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("%w: invalid email %q: %v", common.ErrorValidation, email, err)
	}
	if addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return nil
}

// AuthenticationStatus is the outcome of starting an email sign-in.
type AuthenticationStatus int

const (
	RegistrationStarted AuthenticationStatus = iota + 1
	AuthenticationStarted
)

func (s AuthenticationStatus) String() string {
	switch s {
	case RegistrationStarted:
		return "REGISTRATION_STARTED"
	case AuthenticationStarted:
		return "AUTHENTICATION_STARTED"
	default:
		return "UNKNOWN"
	}
}
