package model

import (
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/autodl-bot-go/domain/cycle"
	"github.com/soocke/autodl-bot-go/domain/session"
)

func TestStatusModel_VersionAdvances(t *testing.T) {
	m := NewStatusModel(10)
	_, v := m.Status()
	assert.Zero(t, v)

	m.SetStatus(cycle.Status{Phase: session.StateScanning, Profile: "nexus"})
	st, v := m.Status()
	assert.Equal(t, uint64(1), v)
	assert.Equal(t, "nexus", st.Profile)
}

func TestStatusModel_DrainAndHistoryBounded(t *testing.T) {
	m := NewStatusModel(3)
	for i := 0; i < 5; i++ {
		m.Append(LogLine{Text: fmt.Sprintf("line %d", i), Severity: cycle.SeverityInfo})
	}
	drained := m.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, "line 2", drained[0].Text)
	assert.Empty(t, m.Drain())

	m.Append(LogLine{Text: "line 5"})
	hist := m.History()
	require.Len(t, hist, 3)
	assert.Equal(t, "line 3", hist[0].Text)
	assert.Equal(t, "line 5", hist[2].Text)
}

func TestPreviewModel_LatestWins(t *testing.T) {
	var m PreviewModel
	p, v := m.Latest()
	assert.Nil(t, p)
	assert.Zero(t, v)

	a := image.NewRGBA(image.Rect(0, 0, 2, 2))
	b := image.NewRGBA(image.Rect(0, 0, 3, 3))
	m.Set(a, image.Rect(0, 0, 1, 1))
	m.Set(nil, image.Rectangle{})
	m.Set(b, image.Rect(1, 1, 2, 2))
	p, v = m.Latest()
	require.NotNil(t, p)
	assert.Same(t, b, p.Image)
	assert.Equal(t, image.Rect(1, 1, 2, 2), p.Box)
	assert.Equal(t, uint64(2), v)
}
