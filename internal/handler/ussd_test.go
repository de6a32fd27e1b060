package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/translearn/translearn/internal/ussd"
)

func postUSSD(h *USSDHandler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	return rec
}

func newUSSDHandler() *USSDHandler {
	svc := ussd.NewService(ussd.NewSessionStore(), nil, discardLogger())
	return NewUSSDHandler(svc, discardLogger())
}

func TestUSSDHandler_InitialDial(t *testing.T) {
	rec := postUSSD(newUSSDHandler(), url.Values{
		"sessionId":   {"ATUid_1"},
		"serviceCode": {"*384*96#"},
		"phoneNumber": {"+254700000001"},
		"text":        {""},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "CON "))
	assert.Contains(t, string(body), "Welcome to TransLearn")
}

func TestUSSDHandler_ExitEndsSession(t *testing.T) {
	rec := postUSSD(newUSSDHandler(), url.Values{
		"sessionId":   {"ATUid_1"},
		"phoneNumber": {"+254700000001"},
		"text":        {"3"},
	})

	assert.True(t, strings.HasPrefix(rec.Body.String(), "END "))
	assert.Contains(t, rec.Body.String(), "Goodbye")
}

func TestUSSDHandler_CumulativeText(t *testing.T) {
	h := newUSSDHandler()

	postUSSD(h, url.Values{"sessionId": {"ATUid_1"}, "phoneNumber": {"+254700000001"}, "text": {"1"}})
	rec := postUSSD(h, url.Values{"sessionId": {"ATUid_1"}, "phoneNumber": {"+254700000001"}, "text": {"1*1"}})

	// Second callback carries the full history; only the last segment counts.
	assert.Contains(t, rec.Body.String(), "Select Grade")
}

func TestUSSDHandler_MissingSessionID(t *testing.T) {
	rec := postUSSD(newUSSDHandler(), url.Values{"phoneNumber": {"+254700000001"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
