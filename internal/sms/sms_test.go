package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_EndpointSelection(t *testing.T) {
	live := NewClient(Config{Username: "translearn", APIKey: "key"})
	assert.Equal(t, liveBaseURL, live.baseURL)

	sandbox := NewClient(Config{Username: "sandbox", APIKey: "key"})
	assert.Equal(t, sandboxBaseURL, sandbox.baseURL)
}

func testClient(serverURL string) *Client {
	c := NewClient(Config{Username: "sandbox", APIKey: "at-key", From: "TRANSLEARN"})
	c.baseURL = serverURL
	return c
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messaging", r.URL.Path)
		assert.Equal(t, "at-key", r.Header.Get("apiKey"))
		assert.Contains(t, r.Header.Get("Content-Type"), "x-www-form-urlencoded")

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sandbox", r.PostFormValue("username"))
		assert.Equal(t, "+254700000001", r.PostFormValue("to"))
		assert.Equal(t, "TRANSLEARN", r.PostFormValue("from"))

		w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700000001","status":"Success"}]}}`))
	}))
	defer server.Close()

	err := testClient(server.URL).Send(context.Background(), "+254700000001", "hello")
	assert.NoError(t, err)
}

func TestClient_Send_RecipientFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700000001","status":"InvalidPhoneNumber"}]}}`))
	}))
	defer server.Close()

	err := testClient(server.URL).Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidPhoneNumber")
}

func TestClient_Send_NoRecipients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SMSMessageData":{"Recipients":[]}}`))
	}))
	defer server.Close()

	err := testClient(server.URL).Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}

func TestClient_Send_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The supplied authentication is invalid", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := testClient(server.URL).Send(context.Background(), "+254700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Send_OmitsEmptyFrom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, hasFrom := r.PostForm["from"]
		assert.False(t, hasFrom)
		w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700000001","status":"Success"}]}}`))
	}))
	defer server.Close()

	c := NewClient(Config{Username: "sandbox", APIKey: "at-key"})
	c.baseURL = server.URL

	err := c.Send(context.Background(), "+254700000001", strings.Repeat("x", 10))
	assert.NoError(t, err)
}
