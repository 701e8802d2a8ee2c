package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

const otpMailTemplate = `# Verify your email

Use the code below to finish creating your account:

**%s**

The code expires in %d minutes. If you did not request it, ignore this mail.
`

const resetMailTemplate = `# Reset your password

We received a request to reset your password. Open the link below to choose a new one:

[Reset password](%s)

The link expires in %d minutes. If you did not request a reset, ignore this mail.
`

func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return buf.String(), nil
}

func otpMail(code string, ttl time.Duration) (string, string, error) {
	body, err := renderMarkdown(fmt.Sprintf(otpMailTemplate, code, int(ttl.Minutes())))
	if err != nil {
		return "", "", err
	}
	return "Verification Mail", body, nil
}

func resetMail(link string, ttl time.Duration) (string, string, error) {
	body, err := renderMarkdown(fmt.Sprintf(resetMailTemplate, link, int(ttl.Minutes())))
	if err != nil {
		return "", "", err
	}
	return "Reset Password Mail", body, nil
}
