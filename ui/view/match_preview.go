package view

import (
	"image"

	"github.com/soocke/autodl-bot-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// MatchPreview shows the last annotated match frame and a crop around it.
type MatchPreview interface {
	UpdateFrame(img image.Image)
	UpdateDetail(img image.Image)
}

const (
	maxPreviewW = 480
	maxPreviewH = 270
)

type matchPreview struct {
	frameLbl    *LabelWidget
	detailLbl   *LabelWidget
	framePhoto  *Img
	detailPhoto *Img
}

// NewMatchPreview grids the frame across columns 0-2 and the crop at column 3.
func NewMatchPreview(row int) MatchPreview {
	blank := images.EncodePNG(image.NewRGBA(image.Rect(0, 0, 200, 120)))
	v := &matchPreview{framePhoto: NewPhoto(Data(blank)), detailPhoto: NewPhoto(Data(blank))}
	v.frameLbl = Label(Image(v.framePhoto), Borderwidth(1), Relief("sunken"))
	v.detailLbl = Label(Image(v.detailPhoto), Borderwidth(1), Relief("sunken"))
	Grid(v.frameLbl, Row(row), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.detailLbl, Row(row), Column(3), Sticky("n"), Padx("0.4m"), Pady("0.4m"))
	return v
}

func (v *matchPreview) UpdateFrame(img image.Image) {
	if v.frameLbl == nil || img == nil {
		return
	}
	v.framePhoto = replacePhoto(v.frameLbl, v.framePhoto, images.ScaleToFit(img, maxPreviewW, maxPreviewH))
}

func (v *matchPreview) UpdateDetail(img image.Image) {
	if v.detailLbl == nil || img == nil {
		return
	}
	v.detailPhoto = replacePhoto(v.detailLbl, v.detailPhoto, img)
}

// replacePhoto swaps the label's photo and frees the previous one so old
// pixel buffers are not retained by Tk.
func replacePhoto(lbl *LabelWidget, prev *Img, img image.Image) *Img {
	next := NewPhoto(Data(images.EncodePNG(img)))
	lbl.Configure(Image(next))
	if prev != nil {
		prev.Delete()
	}
	return next
}
