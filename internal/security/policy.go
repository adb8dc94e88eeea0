package security

import "regexp"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the local@domain.tld shape. Lowercase folding is the
// caller's job before lookup or storage.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type PasswordRule struct {
	Check   func(string) bool
	Message string
}

// passwordRules run in order; the first failing rule decides the message.
var passwordRules = []PasswordRule{
	{
		Check:   func(s string) bool { return len(s) >= 6 },
		Message: "Password must be at least 6 characters long",
	},
	{
		Check:   containsRange('A', 'Z'),
		Message: "Password must contain at least one uppercase letter",
	},
	{
		Check:   containsRange('a', 'z'),
		Message: "Password must contain at least one lowercase letter",
	},
	{
		Check:   containsRange('0', '9'),
		Message: "Password must contain at least one number",
	},
}

// ValidatePassword returns an empty string when the password satisfies the
// strength policy, otherwise the message of the first violated rule.
func ValidatePassword(password string) string {
	for _, rule := range passwordRules {
		if !rule.Check(password) {
			return rule.Message
		}
	}

	return ""
}

func containsRange(lo, hi rune) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if r >= lo && r <= hi {
				return true
			}
		}
		return false
	}
}
