package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/answerd/internal/curation"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
)

func TestPrintReport(t *testing.T) {
	store := knowledge.NewMemoryStore()
	a, err := store.Teach("A cloud is condensed water vapor.", []string{"what is a cloud", "define cloud"})
	require.NoError(t, err)
	b, err := store.Teach("Yes.", []string{"tell me about a cloud"})
	require.NoError(t, err)

	r := curation.Check(store.All(), curation.DefaultCheckConfig(matcher.DefaultConfig()))
	var out bytes.Buffer
	printReport(&out, r)

	assert.Contains(t, out.String(), "Entries:    2")
	assert.Contains(t, out.String(), "3 issue(s)")
	assert.Contains(t, out.String(), "near_duplicate  "+a.ID+", "+b.ID)
	assert.Contains(t, out.String(), "short_answer    "+b.ID)
	assert.Contains(t, out.String(), "single_variant  "+b.ID)
}

func TestPrintReport_Clean(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, curation.Report{Score: 100})
	assert.Contains(t, out.String(), "Score:      100.0/100")
	assert.Contains(t, out.String(), "No issues found.")
}

func TestPrintSuggestions(t *testing.T) {
	store := knowledge.NewMemoryStore()
	_, err := store.Teach("A cloud is condensed water vapor.", []string{"what is a cloud"})
	require.NoError(t, err)
	_, err = store.Teach("Rust forms when iron meets water.", []string{"what is rust"})
	require.NoError(t, err)
	sg := curation.NewSuggester(store.All(), 0.8)

	var out bytes.Buffer
	printSuggestions(&out, sg, "rust", 5)
	assert.Equal(t, "1. what is rust\n   Rust forms when iron meets water.\n", out.String())

	out.Reset()
	printSuggestions(&out, sg, "volcano", 1)
	assert.Equal(t, "Nothing stored about \"volcano\". Popular topics:\n  water (2)\n", out.String())

	out.Reset()
	printSuggestions(&out, curation.NewSuggester(knowledge.NewMemoryStore().All(), 0.8), "", 5)
	assert.Equal(t, "The knowledge file is empty.\n", out.String())
}
