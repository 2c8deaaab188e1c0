package utils

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/beatchart/beatchart/config"
)

// SendMail sends an HTML email using SMTP settings from config.
func SendMail(to, subject, htmlBody string) error {
	cfg := config.Get()
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := gomail.NewMessage()
	if cfg.SMTPFromName != "" {
		msg.SetAddressHeader("From", cfg.SMTPFrom, cfg.SMTPFromName)
	} else {
		msg.SetHeader("From", cfg.SMTPFrom)
	}
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return dialer.DialAndSend(msg)
}

// SendUploadTokenMail delivers a freshly issued upload token to an artist.
// Delivery is best-effort; the token row exists regardless.
func SendUploadTokenMail(to, secret string) error {
	cfg := config.Get()
	body := fmt.Sprintf(
		"<html><body><p>Your single-use upload code is <b>%s</b>.</p>"+
			"<p>Submit your track at <a href='%s'>%s</a>. The code works exactly once.</p></body></html>",
		secret, cfg.BaseURL, cfg.BaseURL,
	)
	return SendMail(to, "Your track upload code", body)
}
