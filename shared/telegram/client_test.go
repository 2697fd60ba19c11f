package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{APIURL: srv.URL, Token: "123:abc", HTTPClient: srv.Client()})
}

func TestClient_SendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(42), body["chat_id"])
		assert.Equal(t, "سلام", body["text"])

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":42}}}`))
	})

	require.NoError(t, c.Send(context.Background(), 42, "سلام"))
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`))
	})

	err := c.SendMessage(context.Background(), 1, "x")

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	c := NewClient(&Config{APIURL: "http://127.0.0.1:1", Token: "123:secret"})

	err := c.SendMessage(context.Background(), 1, "x")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClient_GetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["offset"])
		assert.Equal(t, float64(30), body["timeout"])

		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":5,"message":{"message_id":9,"from":{"id":7,"first_name":"Ali","last_name":"R"},"chat":{"id":7,"type":"private"},"text":"/start@editor_bot hi"}}
		]}`))
	})

	updates, err := c.GetUpdates(context.Background(), 5, 30*time.Second)

	require.NoError(t, err)
	require.Len(t, updates, 1)
	msg := updates[0].Message
	require.NotNil(t, msg)
	assert.Equal(t, "/start", msg.Command())
	assert.Equal(t, "hi", msg.CommandArgs())
	assert.Equal(t, "Ali R", msg.From.FullName())
}

func TestClient_DownloadFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot123:abc/getFile":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"f1","file_path":"documents/file_1.txt"}}`))
		case "/file/bot123:abc/documents/file_1.txt":
			_, _ = w.Write([]byte("hello file"))
		default:
			http.NotFound(w, r)
		}
	})

	file, err := c.GetFile(context.Background(), "f1")
	require.NoError(t, err)

	data, err := c.DownloadFile(context.Background(), file.FilePath, 1024)
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(data))

	_, err = c.DownloadFile(context.Background(), file.FilePath, 4)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestMessage_Command(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  string
		wantArgs string
	}{
		{text: "hello", wantCmd: "", wantArgs: ""},
		{text: "/help", wantCmd: "/help", wantArgs: ""},
		{text: "/set_setting max_words 300", wantCmd: "/set_setting", wantArgs: "max_words 300"},
		{text: "/gemini@my_bot", wantCmd: "/gemini", wantArgs: ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m := &Message{Text: tt.text}
			assert.Equal(t, tt.wantCmd, m.Command())
			assert.Equal(t, tt.wantArgs, m.CommandArgs())
		})
	}
}

func TestClient_SetWebhook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/setWebhook"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://bot.example.com/telegram/webhook", body["url"])
		assert.Equal(t, "s3cret", body["secret_token"])
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example.com/telegram/webhook", "s3cret"))
}
