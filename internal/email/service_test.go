package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/opd-desk/internal/config"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestNewSMTPService_RequiresHost(t *testing.T) {
	_, err := NewSMTPService(config.SMTPConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSMTPService(config.SMTPConfig{Host: "smtp.local", Port: 587})
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	d := &captureDialer{}
	svc := &SMTPService{dialer: d, from: "desk@clinic.test"}

	require.NoError(t, svc.Send(context.Background(), []string{"dr@clinic.test"}, "Follow-ups", "2 patients"))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"dr@clinic.test"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Follow-ups"}, d.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2 patients")
}

func TestSend_Errors(t *testing.T) {
	svc := &SMTPService{dialer: &captureDialer{err: errors.New("refused")}, from: "desk@clinic.test"}

	assert.Error(t, svc.Send(context.Background(), nil, "s", "b"))
	assert.ErrorContains(t, svc.Send(context.Background(), []string{"a@b.c"}, "s", "b"), "refused")
}
