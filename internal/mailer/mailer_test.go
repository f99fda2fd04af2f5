package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResendValidation(t *testing.T) {
	t.Parallel()

	_, err := NewResend(ResendConfig{FromAddress: "audit@gradekit.test"}, nil)
	require.Error(t, err, "missing api key")

	_, err = NewResend(ResendConfig{APIKey: "re_test"}, nil)
	require.Error(t, err, "missing from address")

	m, err := NewResend(ResendConfig{APIKey: "re_test", FromAddress: "audit@gradekit.test"}, nil)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestReportBody(t *testing.T) {
	t.Parallel()

	body := reportBody("GradeKit", "https://acmeplumbing.com", "https://blob/report.pdf")
	require.True(t, strings.Contains(body, "https://acmeplumbing.com"))
	require.True(t, strings.Contains(body, `href="https://blob/report.pdf"`))
	require.True(t, strings.Contains(body, "GradeKit"))
}

func TestMemoryMailer(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	pdf := []byte("%PDF-1.7 fake")
	err := m.SendReport(context.Background(), "owner@example.com",
		"https://acmeplumbing.com", "https://blob/report.pdf", pdf)
	require.NoError(t, err)

	sent := m.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "owner@example.com", sent[0].To)
	require.Equal(t, pdf, sent[0].PDF)

	m.Fail(errors.New("smtp down"))
	err = m.SendReport(context.Background(), "owner@example.com", "", "", nil)
	require.EqualError(t, err, "smtp down")
	require.Len(t, m.Sent(), 1)
}
