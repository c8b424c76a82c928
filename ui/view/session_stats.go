package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows active and paused run time.
type SessionStats interface {
	SetActive(d time.Duration)
	SetPaused(d time.Duration)
}

type sessionStats struct {
	activeLbl *LabelWidget
	pausedLbl *LabelWidget
}

// NewSessionStats grids the two labels at (row, startCol) and (row, startCol+1),
// inside parent when given.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{activeLbl: Label(Width(18), Anchor("w")), pausedLbl: Label(Width(18), Anchor("w"))}
	for i, l := range []*LabelWidget{s.activeLbl, s.pausedLbl} {
		if parent != nil {
			Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.4m"))
		} else {
			Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.4m"))
		}
	}
	s.SetActive(0)
	s.SetPaused(0)
	return s
}

func (s *sessionStats) SetActive(d time.Duration) {
	if s != nil && s.activeLbl != nil {
		s.activeLbl.Configure(Txt("Active: " + FormatClock(d)))
	}
}

func (s *sessionStats) SetPaused(d time.Duration) {
	if s != nil && s.pausedLbl != nil {
		s.pausedLbl.Configure(Txt("Paused: " + FormatClock(d)))
	}
}

// FormatClock renders d as HH:MM:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
