// internal/handler/tracking_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// transparentPixel is a 1x1 transparent GIF served by the open tracker.
var transparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandler serves the open pixel and click redirect. Both endpoints
// are idempotent first-occurrence flag flips and always answer successfully,
// even when the store errors: a broken tracker must never break an email
// render or a link.
type TrackingHandler struct {
	Recipients repository.RecipientRepositoryInterface
	Logger     *zap.Logger
}

// TrackOpen handles GET /track/open.gif?rid={recipient_id}.
func (h *TrackingHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.recipientID(r); ok {
		first, err := h.Recipients.MarkOpened(id, time.Now())
		if err != nil {
			h.Logger.Warn("open tracking update failed", zap.Int("recipient_id", id), zap.Error(err))
		} else if first {
			h.Logger.Debug("recorded open", zap.Int("recipient_id", id))
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(transparentPixel)
}

// TrackClick handles GET /track/click?rid={recipient_id}&url={destination}.
func (h *TrackingHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	destination := r.URL.Query().Get("url")
	if destination == "" {
		destination = "/"
	}

	if id, ok := h.recipientID(r); ok {
		first, err := h.Recipients.MarkClicked(id, time.Now())
		if err != nil {
			h.Logger.Warn("click tracking update failed", zap.Int("recipient_id", id), zap.Error(err))
		} else if first {
			h.Logger.Debug("recorded click", zap.Int("recipient_id", id))
		}
	}

	http.Redirect(w, r, destination, http.StatusFound)
}

func (h *TrackingHandler) recipientID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("rid"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
