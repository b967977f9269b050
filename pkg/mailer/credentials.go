package mailer

import (
	"fmt"
	"html"
	"strings"
)

// Credentials describes a freshly issued account.
type Credentials struct {
	Email     string
	Name      string
	UserID    string
	Secret    string
	Institute string
	LoginURL  string
}

// CredentialsMessage renders the account credentials mail.
func CredentialsMessage(c Credentials) Message {
	institute := c.Institute
	if institute == "" {
		institute = "Faculty Development Workflow"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(c.Name))
	fmt.Fprintf(&b, "<p>An appraisal account has been created for you on <b>%s</b>.</p>", html.EscapeString(institute))
	b.WriteString("<p>Your account credentials are as follows:</p>")
	fmt.Fprintf(&b, "<p>User ID: <b>%s</b><br>Password: <b>%s</b></p>", html.EscapeString(c.UserID), html.EscapeString(c.Secret))
	if c.LoginURL != "" {
		fmt.Fprintf(&b, `<p>Sign in at <a href="%s">%s</a> and change your password.</p>`, html.EscapeString(c.LoginURL), html.EscapeString(c.LoginURL))
	}
	fmt.Fprintf(&b, "<p>Sincerely,<br>%s</p>", html.EscapeString(institute))

	return Message{
		To:      []string{c.Email},
		Subject: institute + " - Account Credentials",
		HTML:    b.String(),
	}
}
