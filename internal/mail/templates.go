package mail

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

var forgotPasswordTmpl = template.Must(template.New("forgotPassword").Parse(
	`Hi {{.Username}},

You requested a password reset for your Chatty account.

Reset your password using the link below. The link expires in one hour.

{{.ResetLink}}

If you did not request this, you can safely ignore this email.
`))

var resetConfirmationTmpl = template.Must(template.New("resetConfirmation").Parse(
	`Hi {{.Username}},

The password for your Chatty account ({{.Email}}) was changed on {{.Date}} from {{.IPAddress}}.

If this was not you, reset your password immediately.
`))

type ForgotPasswordParams struct {
	Username  string
	ResetLink string
}

type ResetConfirmationParams struct {
	Username  string
	Email     string
	IPAddress string
	Date      string
}

func RenderForgotPassword(p ForgotPasswordParams) (string, error) {
	var b strings.Builder
	if err := forgotPasswordTmpl.Execute(&b, p); err != nil {
		return "", errors.Wrap(err, "render forgot password template")
	}
	return b.String(), nil
}

func RenderResetConfirmation(p ResetConfirmationParams) (string, error) {
	var b strings.Builder
	if err := resetConfirmationTmpl.Execute(&b, p); err != nil {
		return "", errors.Wrap(err, "render reset confirmation template")
	}
	return b.String(), nil
}
