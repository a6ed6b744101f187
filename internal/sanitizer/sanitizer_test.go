package sanitizer

import (
	"strings"
	"testing"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestSanitize_EmailRemoval(t *testing.T) {
	s := newTestSanitizer(t)

	out, report, err := s.Sanitize("Contact Dr. Smith at john.smith@research-lab.edu for trial results")

	require.NoError(t, err)
	assert.NotContains(t, out, "@research-lab.edu")
	assert.Contains(t, out, "[EMAIL_REDACTED]")
	assert.Equal(t, 1, report.TotalRedactions())
}

func TestSanitize_PhoneRemoval(t *testing.T) {
	s := newTestSanitizer(t)

	out, report, err := s.Sanitize("Call me at 555-123-4567 or (555) 987-6543")

	require.NoError(t, err)
	assert.NotContains(t, out, "555-123-4567")
	assert.NotContains(t, out, "987-6543")
	assert.Contains(t, out, "[PHONE_REDACTED]")
	assert.Equal(t, 2, report.TotalRedactions())
}

func TestSanitize_SSNRemoval(t *testing.T) {
	s := newTestSanitizer(t)

	out, _, err := s.Sanitize("Patient SSN: 123-45-6789")

	require.NoError(t, err)
	assert.NotContains(t, out, "123-45-6789")
	assert.Contains(t, out, "[SSN_REDACTED]")
}

func TestSanitize_CardAndIPRemoval(t *testing.T) {
	s := newTestSanitizer(t)

	out, _, err := s.Sanitize("Charge 4111 1111 1111 1111 from host 192.168.10.42")

	require.NoError(t, err)
	assert.NotContains(t, out, "4111 1111 1111 1111")
	assert.NotContains(t, out, "192.168.10.42")
	assert.Contains(t, out, "[CARD_REDACTED]")
	assert.Contains(t, out, "[IP_REDACTED]")
}

func TestSanitize_MixedPII(t *testing.T) {
	s := newTestSanitizer(t)

	out, report, err := s.Sanitize("Contact researcher@lab.edu or call 555-123-4567 about patient 123-45-6789")

	require.NoError(t, err)
	assert.Contains(t, out, "[EMAIL_REDACTED]")
	assert.Contains(t, out, "[PHONE_REDACTED]")
	assert.Contains(t, out, "[SSN_REDACTED]")
	assert.NotContains(t, out, "researcher@lab.edu")
	assert.NotContains(t, out, "555-123-4567")
	assert.NotContains(t, out, "123-45-6789")
	assert.Len(t, report.Entries, 3)
	assert.True(t, s.Validate(out))
}

func TestSanitize_DataMinimization(t *testing.T) {
	s := MustNew(Config{MaxContentLength: 100})

	out, report, err := s.Sanitize(strings.Repeat("A", 500))

	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out)), 100)
	assert.True(t, report.Truncated)
}

func TestSanitize_ShortContentNotTruncated(t *testing.T) {
	s := newTestSanitizer(t)

	out, report, err := s.Sanitize("nothing sensitive here")

	require.NoError(t, err)
	assert.Equal(t, "nothing sensitive here", out)
	assert.False(t, report.Truncated)
	assert.Empty(t, report.Entries)
}

func TestSanitize_Deterministic(t *testing.T) {
	s := newTestSanitizer(t)
	input := "Email a@b.org, b@c.org, call 555-123-4567. SSN: 123-45-6789"

	out1, report1, err1 := s.Sanitize(input)
	out2, report2, err2 := s.Sanitize(input)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, out1, out2)
	assert.Equal(t, report1, report2)
}

func TestSanitize_RepeatedValueSameToken(t *testing.T) {
	s := newTestSanitizer(t)

	out, report, err := s.Sanitize("Ping jane@lab.edu; I said jane@lab.edu twice")

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "[EMAIL_REDACTED]"))
	assert.Equal(t, 2, report.TotalRedactions())
}

func TestSanitize_InvalidUTF8(t *testing.T) {
	s := newTestSanitizer(t)

	_, _, err := s.Sanitize(string([]byte{0xff, 0xfe, 0xfd}))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidate(t *testing.T) {
	s := newTestSanitizer(t)

	unsafe := "Contact john@example.com at 555-123-4567"
	assert.False(t, s.Validate(unsafe))

	safe, _, err := s.Sanitize(unsafe)
	require.NoError(t, err)
	assert.True(t, s.Validate(safe))
}

func TestSanitizeItem(t *testing.T) {
	s := newTestSanitizer(t)
	item := domain.NewRawItem("lab_a", domain.SourceTypeEmail,
		"Confidential Trial Data",
		"Email me at researcher@lab.edu about patient 123-45-6789. Call 555-123-4567.")

	sanitized, err := s.SanitizeItem(item)

	require.NoError(t, err)
	assert.Equal(t, item.ID, sanitized.SourceItemID)
	assert.Equal(t, "lab_a", sanitized.OrgID)
	assert.Contains(t, sanitized.Content, "Confidential Trial Data")
	assert.NotContains(t, sanitized.Content, "researcher@lab.edu")
	assert.NotContains(t, sanitized.Content, "123-45-6789")
	assert.NotContains(t, sanitized.Content, "555-123-4567")
	assert.True(t, s.Validate(sanitized.Content))
}

func TestSanitizeItem_MissingOrg(t *testing.T) {
	s := newTestSanitizer(t)
	item := domain.NewRawItem("", domain.SourceTypeNote, "", "some content")

	_, err := s.SanitizeItem(item)

	assert.ErrorIs(t, err, domain.ErrMissingOrgID)
}

func TestConfig_InvalidPattern(t *testing.T) {
	cfg := Config{
		Rules: []Rule{{Class: "broken", Pattern: "([", Placeholder: "[X]"}},
	}

	_, err := New(cfg)

	assert.Error(t, err)
}
