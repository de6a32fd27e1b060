package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/translearn/translearn/internal/ussd"
)

// USSDHandler terminates Africa's Talking USSD callbacks.
type USSDHandler struct {
	ussd   *ussd.Service
	logger *slog.Logger
}

// NewUSSDHandler creates the USSD handler.
func NewUSSDHandler(svc *ussd.Service, logger *slog.Logger) *USSDHandler {
	return &USSDHandler{ussd: svc, logger: logger}
}

// Callback processes POST /ussd. The gateway sends a form-encoded request
// and expects a plain-text body prefixed with "CON " (more input expected)
// or "END " (session over).
func (h *USSDHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := ussd.Request{
		SessionID:   r.PostFormValue("sessionId"),
		ServiceCode: r.PostFormValue("serviceCode"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Text:        r.PostFormValue("text"),
	}
	if req.SessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	resp := h.ussd.Handle(r.Context(), req)

	prefix := "CON"
	if resp.End {
		prefix = "END"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s %s", prefix, resp.Text)
}
