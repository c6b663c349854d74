package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelegram(t *testing.T) {
	_, err := NewTelegram("", "")
	assert.ErrorIs(t, err, ErrMissingBotToken)

	tg, err := NewTelegram("123:abc", "")
	require.NoError(t, err)
	assert.Equal(t, "telegram", tg.Name())
}

func TestTelegramSend(t *testing.T) {
	t.Run("posts to the bot sendMessage endpoint", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		tg, err := NewTelegram("123:abc", server.URL)
		require.NoError(t, err)

		require.NoError(t, tg.Send(context.Background(), "chat-42", "hello"))

		assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
		assert.Equal(t, "chat-42", gotBody["chat_id"])
		assert.Equal(t, "hello", gotBody["text"])
		assert.Equal(t, "HTML", gotBody["parse_mode"])
	})

	t.Run("logical failure inside a 200 response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
		}))
		defer server.Close()

		tg, err := NewTelegram("123:abc", server.URL)
		require.NoError(t, err)

		err = tg.Send(context.Background(), "chat-42", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("http failure is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		tg, err := NewTelegram("123:abc", server.URL)
		require.NoError(t, err)

		assert.Error(t, tg.Send(context.Background(), "chat-42", "hello"))
	})
}
