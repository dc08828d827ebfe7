package nlu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parle/internal/intent"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

// fakeServer answers every chat completion with body and records the last
// request payload.
func fakeServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()

	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &last))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &last
}

func newTestClassifier(url string) *Classifier {
	return New(Config{APIKey: "test-key", BaseURL: url, Timeout: 5 * time.Second})
}

func TestClassify_Success(t *testing.T) {
	srv, last := fakeServer(t, http.StatusOK, completion(
		`{"action":"open","target":"firefox","platform":null,"search":null,"confidence":1.0}`))

	got := newTestClassifier(srv.URL).Classify(context.Background(), "Ouvre Firefox")

	assert.Equal(t, intent.Intent{
		Action:     intent.Open,
		Target:     "firefox",
		Confidence: 1.0,
		Origin:     intent.Remote,
	}, got)

	req := *last
	assert.Equal(t, DefaultModel, req["model"])
	assert.InDelta(t, 0.1, req["temperature"], 1e-9)
	assert.EqualValues(t, 200, req["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "Ouvre Firefox", user["content"])
}

func TestClassify_NonJSON(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, completion("Bien sûr ! J'ouvre firefox."))

	got := newTestClassifier(srv.URL).Classify(context.Background(), "ouvre firefox")
	assert.Equal(t, intent.Failed(intent.Remote), got)
}

func TestClassify_ServerError(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)

	got := newTestClassifier(srv.URL).Classify(context.Background(), "ouvre firefox")
	assert.Equal(t, intent.Error, got.Action)
	assert.Zero(t, got.Confidence)
}

func TestClassify_NoChoices(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`)

	got := newTestClassifier(srv.URL).Classify(context.Background(), "ouvre firefox")
	assert.Equal(t, intent.Error, got.Action)
}

func TestClassify_NoCredential(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Enabled())
	assert.Equal(t, intent.Failed(intent.Remote), c.Classify(context.Background(), "ouvre firefox"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    intent.Intent
	}{
		{
			name:    "string confidence",
			content: `{"action":"search","search":"chats","platform":"google","confidence":"0.75"}`,
			want:    intent.Intent{Action: intent.Search, Search: "chats", Platform: "google", Confidence: 0.75, Origin: intent.Remote},
		},
		{
			name:    "garbage confidence",
			content: `{"action":"play","search":"Adriano","confidence":"sure"}`,
			want:    intent.Intent{Action: intent.Play, Search: "Adriano", Origin: intent.Remote},
		},
		{
			name:    "missing confidence and action",
			content: `{"target":"chrome"}`,
			want:    intent.Intent{Action: intent.Unknown, Target: "chrome", Origin: intent.Remote},
		},
		{
			name:    "null strings and clamped confidence",
			content: `{"action":"QUIT","target":"null","search":"None","confidence":3}`,
			want:    intent.Intent{Action: intent.Quit, Confidence: 1, Origin: intent.Remote},
		},
		{
			name:    "code fence",
			content: "```json\n{\"action\":\"write\",\"confidence\":0.5}\n```",
			want:    intent.Intent{Action: intent.Write, Confidence: 0.5, Origin: intent.Remote},
		},
		{
			name:    "non string target",
			content: `{"action":"open","target":42,"confidence":-1}`,
			want:    intent.Intent{Action: intent.Open, Origin: intent.Remote},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NotAnObject(t *testing.T) {
	_, err := Parse(`["open"]`)
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)
}
