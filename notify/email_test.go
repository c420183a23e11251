// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package notify

import (
	"errors"
	"io/ioutil"
	"net/smtp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func recorder(into *[]sent, err error) SendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*into = append(*into, sent{addr, a, from, to, string(msg)})
		return err
	}
}

func TestCompose(t *testing.T) {
	h := &EmailHook{
		User:    "ops@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "ArcGIS Server check failed",
		Message: "A check reported a problem.",
	}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "2 services are stopped",
		Data:    logrus.Fields{"run": "r1", "host": "gis"},
	}
	assert.Equal(t, ""+
		"To: a@example.com, b@example.com\r\n"+
		"From: ops@example.com\r\n"+
		"Subject: ArcGIS Server check failed\r\n"+
		"\r\n"+
		"A check reported a problem.\r\n"+
		"\r\n"+
		"04/03/2026 - 05:06:07 ERROR: 2 services are stopped\r\n"+
		"host=gis\r\n"+
		"run=r1\r\n", string(h.Compose(entry)))
}

func TestHookFires(t *testing.T) {
	var mail []sent
	h := &EmailHook{
		Server:   "smtp.example.com:587",
		User:     "ops@example.com",
		Password: "pw",
		To:       []string{"a@example.com"},
		Send:     recorder(&mail, nil),
	}
	logger := logrus.New()
	logger.Out = ioutil.Discard
	logger.AddHook(h)

	logger.Info("fine")
	logger.Warn("hmm")
	assert.Empty(t, mail)

	logger.WithField("k", "v").Error("broken")
	if assert.Len(t, mail, 1) {
		assert.Equal(t, "smtp.example.com:587", mail[0].addr)
		assert.NotNil(t, mail[0].auth)
		assert.Equal(t, "ops@example.com", mail[0].from)
		assert.Equal(t, []string{"a@example.com"}, mail[0].to)
		assert.Contains(t, mail[0].msg, "ERROR: broken\r\n")
		assert.Contains(t, mail[0].msg, "k=v\r\n")
	}
}

func TestHookNoAuth(t *testing.T) {
	var mail []sent
	h := &EmailHook{Server: "localhost:25", Send: recorder(&mail, nil)}
	assert.NoError(t, h.Fire(&logrus.Entry{Level: logrus.ErrorLevel, Message: "x"}))
	if assert.Len(t, mail, 1) {
		assert.Nil(t, mail[0].auth)
	}
}

func TestHookError(t *testing.T) {
	var mail []sent
	h := &EmailHook{Server: "localhost:25", Send: recorder(&mail, errors.New("refused"))}
	assert.EqualError(t, h.Fire(&logrus.Entry{Level: logrus.ErrorLevel}), "refused")
}
