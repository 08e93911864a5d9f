package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMacrosLookupIgnoresCase(t *testing.T) {
	m := DefaultMacros("Review")

	body, ok := m.Lookup("  QUEUE ")
	require.True(t, ok)
	assert.Contains(t, body, "backlog")

	_, ok = m.Lookup("unknown")
	assert.False(t, ok)
}

func TestMacrosMerge(t *testing.T) {
	m := DefaultMacros("Review").Merge(map[string]string{
		"Refund": "We do not issue refunds.",
		"faq":    "",
	})

	assert.Equal(t, []string{"fraud", "fthelp", "queue", "refund"}, m.Tags())
	body, ok := m.Lookup("refund")
	require.True(t, ok)
	assert.Equal(t, "We do not issue refunds.", body)
}

func TestTicketClone(t *testing.T) {
	claimant := "U1"
	orig := &Ticket{ID: 7, Status: TicketStatusOpen, ClaimedBy: &claimant, UserThreadTS: "1.1", StaffThreadTS: "2.2"}

	c := orig.Clone()
	*c.ClaimedBy = "U2"

	assert.Equal(t, "U1", *orig.ClaimedBy)
	assert.True(t, orig.HasThread("2.2"))
	assert.False(t, orig.HasThread(""))
}
