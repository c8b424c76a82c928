package presenter

import (
	"image"
	"time"

	"github.com/soocke/autodl-bot-go/domain/cycle"
	"github.com/soocke/autodl-bot-go/ui/model"
)

// Dashboard is the cycle.Sink backing the status window. It only buffers;
// the Tk thread picks changes up on its own tick.
type Dashboard struct {
	status  *model.StatusModel
	preview *model.PreviewModel
	now     func() time.Time
}

var _ cycle.Sink = (*Dashboard)(nil)

func NewDashboard(status *model.StatusModel, preview *model.PreviewModel) *Dashboard {
	return &Dashboard{status: status, preview: preview, now: time.Now}
}

func (d *Dashboard) Log(msg string, sev cycle.Severity) {
	if d == nil || d.status == nil {
		return
	}
	d.status.Append(model.LogLine{At: d.now(), Severity: sev, Text: msg})
}

func (d *Dashboard) Status(st cycle.Status) {
	if d == nil || d.status == nil {
		return
	}
	d.status.SetStatus(st)
}

// Refresh is a no-op: the window redraws from its own event loop.
func (d *Dashboard) Refresh() {}

// Preview stores an annotated match frame for the preview pane.
func (d *Dashboard) Preview(img *image.RGBA, box image.Rectangle) {
	if d == nil {
		return
	}
	d.preview.Set(img, box)
}
