// Package mail renders and sends the sign-in and registration emails.
package mail

import (
	"context"
	"fmt"
)

// Template is an email with %s placeholders in its body.
type Template struct {
	Sender  string
	Subject string
	Body    string
}

var (
	RegistrationMail = Template{
		Sender:  "verification@imagey.cloud",
		Subject: "Email Verification",
		Body:    `Please verify your email address to register to Imagey by clicking the following link: <a href="%s">Register</a>`,
	}

	LoginMail = Template{
		Sender:  "login@imagey.cloud",
		Subject: "Sign in via email",
		Body:    `Please click the link to sign in to Imagey: <a href="%s">Sign in</a>`,
	}
)

// Render substitutes values into the body. It has no side effects.
func Render(t Template, values ...any) Template {
	t.Body = fmt.Sprintf(t.Body, values...)
	return t
}

// Sender delivers one rendered template to one recipient. Failures are
// reported as common.ErrMailUnavailable and never retried.
type Sender interface {
	Send(ctx context.Context, recipient string, t Template, values ...any) error
}
