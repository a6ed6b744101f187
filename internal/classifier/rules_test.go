package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/domain"
)

func TestRulesClassifier_WorkItem(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeEmail,
		"Q3 review",
		"The client wants the project report before the deadline on Friday.")

	label, err := c.Classify(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryWork, label.Category)
	assert.Greater(t, label.Confidence, 0.5)
	assert.True(t, label.Admits(0.7))
}

func TestRulesClassifier_PersonalItem(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeNote,
		"",
		"Don't forget the birthday dinner this weekend, and book the vacation flight.")

	label, err := c.Classify(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPersonal, label.Category)
	assert.False(t, label.Admits(0.7))
}

func TestRulesClassifier_ExactPhraseWins(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeEmail,
		"Meeting notes",
		"birthday dinner vacation weekend party")

	label, err := c.Classify(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryWork, label.Category)
	assert.Equal(t, 1.0, label.Confidence)
}

func TestRulesClassifier_NoSignalsFailsClosed(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeNote, "", "lorem ipsum dolor sit amet")

	label, err := c.Classify(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPersonal, label.Category)
	assert.False(t, label.Admits(0.0))
}

func TestRulesClassifier_TieGoesToPersonal(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeNote, "", "project birthday")

	label, err := c.Classify(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPersonal, label.Category)
}

func TestRulesClassifier_Deterministic(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("org_a", domain.SourceTypeDocument,
		"Roadmap",
		"sprint review with the client, then dinner with family")

	first, err := c.Classify(context.Background(), item)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		label, err := c.Classify(context.Background(), item)
		require.NoError(t, err)
		assert.Equal(t, first, label)
	}
}

func TestRulesClassifier_InvalidItem(t *testing.T) {
	c := NewRulesClassifier()
	item := domain.NewRawItem("", domain.SourceTypeEmail, "", "project update")

	_, err := c.Classify(context.Background(), item)

	assert.ErrorIs(t, err, domain.ErrMissingOrgID)
}
