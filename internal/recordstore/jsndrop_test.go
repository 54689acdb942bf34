package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-des/internal/resilience"
)

// fakeJSNDrop records every decoded command and answers with canned replies.
type fakeJSNDrop struct {
	mu       sync.Mutex
	commands []map[string]json.RawMessage
	reply    func(cmd map[string]json.RawMessage) any
}

func (f *fakeJSNDrop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var envelope struct {
		Tok string                     `json:"tok"`
		Cmd map[string]json.RawMessage `json:"cmd"`
	}
	if err := json.Unmarshal([]byte(r.URL.Query().Get("tok")), &envelope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if envelope.Tok != "token-123" {
		_ = json.NewEncoder(w).Encode(map[string]any{"JsnMsg": "APP_ERROR.TOKEN", "Msg": "bad token"})
		return
	}

	f.mu.Lock()
	f.commands = append(f.commands, envelope.Cmd)
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(f.reply(envelope.Cmd))
}

func newTestClient(t *testing.T, fake *fakeJSNDrop, token string) *JSNDropClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewJSNDropClient(srv.Client(), token,
		WithBaseURL(srv.URL+"/"),
		WithBackoff(resilience.BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}),
	)
}

func TestJSNDropSelectSendsPredicate(t *testing.T) {
	fake := &fakeJSNDrop{reply: func(cmd map[string]json.RawMessage) any {
		return map[string]any{
			"JsnMsg": "SUCCESS.SELECT",
			"Msg": []map[string]any{
				{"city": "Nelson", "month": "Feb", "temperature": 19.1, "year": 2023},
			},
		}
	}}
	client := newTestClient(t, fake, "token-123")

	rows, err := client.Select(context.Background(), "weatherData", And(Eq("city", "Nelson"), Eq("year", 2023)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Feb", rows[0].String("month"))

	require.Len(t, fake.commands, 1)
	var table, where string
	require.NoError(t, json.Unmarshal(fake.commands[0]["SELECT"], &table))
	require.NoError(t, json.Unmarshal(fake.commands[0]["WHERE"], &where))
	assert.Equal(t, "weatherData", table)
	assert.Equal(t, "city = 'Nelson' AND year = 2023", where)
}

func TestJSNDropDataErrorIsNoData(t *testing.T) {
	fake := &fakeJSNDrop{reply: func(map[string]json.RawMessage) any {
		return map[string]any{"JsnMsg": "DATA_ERROR.SELECT", "Msg": "no rows"}
	}}
	client := newTestClient(t, fake, "token-123")

	_, err := client.Select(context.Background(), "tblUser", Eq("PersonID", "kim"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestJSNDropStatusError(t *testing.T) {
	client := newTestClient(t, &fakeJSNDrop{}, "wrong")

	err := client.Put(context.Background(), "weatherData", Record{"city": "Nelson"})
	require.Error(t, err)

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "APP_ERROR.TOKEN", storeErr.Status)
	assert.Equal(t, "bad token", storeErr.Message)
}

func TestJSNDropCreateIgnoresExistingTable(t *testing.T) {
	fake := &fakeJSNDrop{reply: func(cmd map[string]json.RawMessage) any {
		return map[string]any{"JsnMsg": "APP_ERROR.CREATE", "Msg": "Table tblChat_DES1 already exists"}
	}}
	client := newTestClient(t, fake, "token-123")

	err := client.Create(context.Background(), "tblChat_DES1", Record{"PersonID": "A"})
	assert.NoError(t, err)
}

func TestJSNDropStoreEncodesValues(t *testing.T) {
	fake := &fakeJSNDrop{reply: func(map[string]json.RawMessage) any {
		return map[string]any{"JsnMsg": "SUCCESS.STORE", "Msg": "stored"}
	}}
	client := newTestClient(t, fake, "token-123")

	err := client.Put(context.Background(), "openweather",
		Record{"city": "Nelson", "temperature": 14.2, "timestamp": "2024-11-10 00:00:00"},
		Record{"city": "Nelson", "temperature": 13.8, "timestamp": "2024-11-10 03:00:00"},
	)
	require.NoError(t, err)

	var values []Record
	require.NoError(t, json.Unmarshal(fake.commands[0]["VALUE"], &values))
	assert.Len(t, values, 2)
	assert.Equal(t, "2024-11-10 03:00:00", values[1].String("timestamp"))
}
