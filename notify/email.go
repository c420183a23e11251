// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package notify sends operator alerts.  EmailHook is a logrus hook
// that mails every error-level log entry, so unattended runs report
// their failures.
package notify

import (
	"bytes"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// SendFunc delivers one message.  It has the signature of
// smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailHook mails log entries.
type EmailHook struct {
	// Server is the SMTP server as host:port.
	Server string

	// User and Password authenticate to the server.  User is also
	// the sender address.  If User is empty, no authentication is
	// attempted.
	User     string
	Password string

	// To lists the recipients.
	To []string

	// Subject is the mail subject line.
	Subject string

	// Message is a fixed preamble placed before the log entry.
	Message string

	// Send delivers mail; nil means smtp.SendMail.
	Send SendFunc
}

// Levels returns the levels this hook fires on: error and worse.
func (h *EmailHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}
}

// Fire sends one entry.
func (h *EmailHook) Fire(entry *logrus.Entry) error {
	send := h.Send
	if send == nil {
		send = smtp.SendMail
	}
	var auth smtp.Auth
	if h.User != "" {
		host, _, err := net.SplitHostPort(h.Server)
		if err != nil {
			host = h.Server
		}
		auth = smtp.PlainAuth("", h.User, h.Password, host)
	}
	return send(h.Server, auth, h.User, h.To, h.Compose(entry))
}

// Compose builds the mail text for an entry: headers, the fixed
// message, then the entry's time, level, text and sorted fields.
func (h *EmailHook) Compose(entry *logrus.Entry) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(h.To, ", "))
	fmt.Fprintf(&buf, "From: %s\r\n", h.User)
	fmt.Fprintf(&buf, "Subject: %s\r\n", h.Subject)
	buf.WriteString("\r\n")
	if h.Message != "" {
		buf.WriteString(h.Message)
		buf.WriteString("\r\n\r\n")
	}
	fmt.Fprintf(&buf, "%s %s: %s\r\n",
		entry.Time.Format("02/01/2006 - 15:04:05"),
		strings.ToUpper(entry.Level.String()),
		entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%v\r\n", k, entry.Data[k])
	}
	return buf.Bytes()
}
