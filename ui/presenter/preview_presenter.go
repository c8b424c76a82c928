package presenter

import (
	"image"

	"github.com/soocke/autodl-bot-go/ui/images"
	"github.com/soocke/autodl-bot-go/ui/model"
)

// DetailSize is the side of the square crop around the match.
const DetailSize = 120

// PreviewView shows the latest annotated match and a crop around it.
type PreviewView interface {
	UpdatePreview(img image.Image)
	UpdateDetail(img image.Image)
}

// PreviewPresenter forwards a new preview once per version.
type PreviewPresenter struct {
	model *model.PreviewModel
	view  PreviewView
	seen  uint64
}

func NewPreviewPresenter(m *model.PreviewModel, view PreviewView) *PreviewPresenter {
	return &PreviewPresenter{model: m, view: view}
}

func (p *PreviewPresenter) Tick() {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	pv, v := p.model.Latest()
	if pv == nil || v == p.seen {
		return
	}
	p.seen = v
	p.view.UpdatePreview(pv.Image)
	c := pv.Box.Min.Add(pv.Box.Max).Div(2)
	if roi, _, err := images.ExtractROI(pv.Image, c.X, c.Y, DetailSize); err == nil {
		p.view.UpdateDetail(roi)
	}
}
