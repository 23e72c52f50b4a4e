package mail

import "fmt"

// The storefront sends every one-time code as a plain text message. Codes are
// generated upstream and expire after a few minutes, so the wording always
// includes the validity window.

// VerificationMessage builds the email sent after registration.
func VerificationMessage(to, code string, minutes int) Message {
	return Message{
		To:      []string{to},
		Subject: "Verify your TechnoTrades account",
		Body: fmt.Sprintf(
			"Welcome to TechnoTrades!\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not create an account, you can ignore this message.\n",
			code, minutes),
	}
}

// LoginCodeMessage builds the email carrying a one-time sign-in code.
func LoginCodeMessage(to, code string, minutes int) Message {
	return Message{
		To:      []string{to},
		Subject: "Your TechnoTrades sign-in code",
		Body: fmt.Sprintf(
			"Your one-time sign-in code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this message.\n",
			code, minutes),
	}
}

// PasswordResetMessage builds the email for the forgot-password flow.
func PasswordResetMessage(to, code string, minutes int) Message {
	return Message{
		To:      []string{to},
		Subject: "Reset your TechnoTrades password",
		Body: fmt.Sprintf(
			"Use the code %s to reset your password. It expires in %d minutes.\n\nIf you did not request a password reset, your account is safe and no action is needed.\n",
			code, minutes),
	}
}

// EmailChangeMessage builds the email sent to a newly requested address.
func EmailChangeMessage(to, code string, minutes int) Message {
	return Message{
		To:      []string{to},
		Subject: "Confirm your new TechnoTrades email",
		Body: fmt.Sprintf(
			"Use the code %s to confirm this address for your TechnoTrades account. It expires in %d minutes.\n\nIf you did not request this change, you can ignore this message.\n",
			code, minutes),
	}
}
