package otp

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// SMTPSender delivers codes over plain-auth SMTP.
type SMTPSender struct {
	Host     string
	Port     string
	From     string
	Password string
}

func NewSMTPSender(host, port, from, password string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from, Password: password}
}

func (s *SMTPSender) Send(_ context.Context, email, displayName, code string) error {
	if s.Host == "" || s.From == "" {
		return fmt.Errorf("smtp host and sender address required")
	}
	msg := []byte("From: " + s.From + "\r\n" +
		"To: " + email + "\r\n" +
		"Subject: Smart Attendance - OTP Verification\r\n" +
		"\r\n" +
		"Hello " + displayName + ",\r\n\r\n" +
		"Your verification code is " + code + ". It expires in 10 minutes.\r\n\r\n" +
		"If you did not request this code, ignore this message.\r\n")

	auth := smtp.PlainAuth("", s.From, s.Password, s.Host)
	if err := smtp.SendMail(s.Host+":"+s.Port, auth, s.From, []string{email}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// LogSender prints codes to the process log. Dev only.
type LogSender struct{}

func (LogSender) Send(_ context.Context, email, _, code string) error {
	log.Printf("otp: code for %s is %s", email, code)
	return nil
}
