package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/transport"
)

func testMessage() transport.Message {
	return transport.Message{
		FromName:  "Mailpulse",
		FromEmail: "news@example.com",
		To:        "user@example.com",
		Subject:   "Hello",
		HTML:      "<p>Hi</p>",
	}
}

func TestSendPostsResendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := transport.NewHTTPSender(srv.URL, "key-123", 5*time.Second)
	require.NoError(t, s.Send(context.Background(), testMessage()))

	assert.Equal(t, "Mailpulse <news@example.com>", got["from"])
	assert.Equal(t, "user@example.com", got["to"])
	assert.Equal(t, "Hello", got["subject"])
	assert.Equal(t, "<p>Hi</p>", got["html"])
}

func TestSendNon2xxIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid recipient"}`))
	}))
	defer srv.Close()

	s := transport.NewHTTPSender(srv.URL, "key-123", 5*time.Second)
	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.True(t, appErrors.IsTransportFailure(err))
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSendNetworkErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	s := transport.NewHTTPSender(srv.URL, "key-123", time.Second)
	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.True(t, appErrors.IsTransportFailure(err))
}
