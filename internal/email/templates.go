// Provides localized email templates.

package email

import "fmt"

// Locale represents a supported language code.
type Locale string

// Supported locales for email templates.
const (
	LocaleEN Locale = "en"
	LocalePT Locale = "pt"
)

// DefaultLocale is used when no locale is specified or the locale is unsupported.
const DefaultLocale = LocaleEN

// ParseLocale converts a string to a Locale, returning DefaultLocale if unsupported.
func ParseLocale(s string) Locale {
	switch Locale(s) {
	case LocaleEN, LocalePT:
		return Locale(s)
	default:
		return DefaultLocale
	}
}

type emailTemplates struct {
	PasswordSubject string
	PasswordBody    string
}

var templates = map[Locale]*emailTemplates{
	LocaleEN: {
		PasswordSubject: "Your dundie password",
		PasswordBody: `Hi %s,

Welcome to dundie! Your password is:

    %s

Use it with your email address to log in and send points to your colleagues.
`,
	},
	LocalePT: {
		PasswordSubject: "Sua senha dundie",
		PasswordBody: `Olá %s,

Bem-vindo ao dundie! Sua senha é:

    %s

Use-a com seu email para entrar e enviar pontos aos seus colegas.
`,
	},
}

func getTemplates(locale Locale) *emailTemplates {
	if t, ok := templates[locale]; ok {
		return t
	}
	return templates[DefaultLocale]
}

// PasswordEmail returns the subject and body delivering a new password.
func PasswordEmail(locale Locale, name, password string) (subject, body string) {
	t := getTemplates(locale)
	return t.PasswordSubject, fmt.Sprintf(t.PasswordBody, name, password)
}
