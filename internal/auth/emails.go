package auth

import "fmt"

func verificationEmail(name, link string) (subject, text, html string) {
	subject = "Confirm your email address"
	text = fmt.Sprintf(
		"Hello %s,\n\nConfirm your email address to activate your incubator account:\n\n%s\n\nThe link is valid for 24 hours. If you did not sign up, ignore this message.\n",
		name, link)
	html = fmt.Sprintf(
		`<p>Hello %s,</p><p>Confirm your email address to activate your incubator account:</p><p><a href="%s">Confirm email</a></p><p>The link is valid for 24 hours. If you did not sign up, ignore this message.</p>`,
		name, link)
	return subject, text, html
}

func passwordResetEmail(name, link string) (subject, text, html string) {
	subject = "Reset your password"
	text = fmt.Sprintf(
		"Hello %s,\n\nUse this link to choose a new password:\n\n%s\n\nIf you did not request a reset, ignore this message.\n",
		name, link)
	html = fmt.Sprintf(
		`<p>Hello %s,</p><p>Use this link to choose a new password:</p><p><a href="%s">Reset password</a></p><p>If you did not request a reset, ignore this message.</p>`,
		name, link)
	return subject, text, html
}
