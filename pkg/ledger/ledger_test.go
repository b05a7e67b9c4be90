package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func neg(customer, ref int64, stage models.Stage, rank int, score float64) models.MatchRecord {
	return models.MatchRecord{CustomerID: customer, NegativeID: models.Int64(ref), Stage: stage, Rank: rank, MatchScore: score, MatchCriteria: "neg"}
}

func pos(customer, ref int64, stage models.Stage, rank int, score float64) models.MatchRecord {
	return models.MatchRecord{CustomerID: customer, PositiveID: models.Int64(ref), Stage: stage, Rank: rank, MatchScore: score, MatchCriteria: "pos"}
}

func TestLedger_Sort(t *testing.T) {
	l := New(
		pos(2, 7, models.StageDDM, 1, 100),
		neg(1, 9, models.StagePDM, 1, 81.5),
		pos(1, 3, models.StageDDM, 4, 97.2),
		neg(1, 5, models.StageDDM, 4, 97.2),
		neg(1, 4, models.StageDDM, 4, 97.2),
	)
	l.Sort()

	rows := l.Rows()
	require.Len(t, rows, 5)
	assert.Equal(t, int64(4), rows[0].ReferenceID())
	assert.Equal(t, int64(5), rows[1].ReferenceID())
	assert.Equal(t, models.ListPositive, rows[2].Side())
	assert.Equal(t, models.StagePDM, rows[3].Stage)
	assert.Equal(t, int64(2), rows[4].CustomerID)
}

func TestLedger_FilterAndIDs(t *testing.T) {
	l := New(
		neg(3, 1, models.StageDDM, 1, 100),
		pos(1, 2, models.StageDDM, 1, 100),
		neg(1, 3, models.StagePDM, 2, 81),
	)

	assert.Len(t, l.Filter(models.StageDDM, models.ListNegative), 1)
	assert.Len(t, l.Filter(models.StagePDM, models.ListPositive), 0)
	assert.Equal(t, []int64{1, 3}, l.CustomerIDs())
	assert.Equal(t, []int64{2, 4}, l.Unmatched([]int64{1, 2, 3, 4}))
}

func TestLedger_Consolidate(t *testing.T) {
	l := New(
		pos(1, 20, models.StageDDM, 2, 99.4),
		neg(1, 10, models.StageDDM, 4, 97.2),
		neg(1, 11, models.StageDDM, 4, 97.2),
		neg(2, 12, models.StageDDM, 1, 100),
		pos(2, 21, models.StagePDM, 3, 80.5),
	)

	c := l.Consolidate()
	rows := c.Rows()
	require.Len(t, rows, 4)

	merged := rows[0]
	assert.True(t, merged.HasBothSides())
	assert.Equal(t, int64(10), *merged.NegativeID)
	assert.Equal(t, int64(20), *merged.PositiveID)
	assert.Equal(t, "neg | pos", merged.MatchCriteria)
	assert.Equal(t, 99.4, merged.MatchScore)
	assert.Equal(t, 2, merged.Rank)

	// the tied negative row stays single-sided
	assert.Equal(t, int64(11), *rows[1].NegativeID)
	assert.Nil(t, rows[1].PositiveID)

	// different stages are never merged
	assert.False(t, rows[2].HasBothSides())
	assert.False(t, rows[3].HasBothSides())

	// the source ledger is untouched
	assert.Equal(t, 5, l.Len())
}
