package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/transport"
)

func newTestChannel(t *testing.T, handler http.HandlerFunc) (*Channel, *atomic.Int32) {
	t.Helper()
	calls := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := transport.New(transport.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewChannel(client), calls
}

func answer(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":` + mustJSON(text) + `}`))
	}
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestAskSendsQuestion(t *testing.T) {
	var got askRequest
	ch, _ := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/agent/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		answer("18°C, ensoleillé")(w, r)
	})

	res, err := ch.Ask(context.Background(), "  Quel temps à Paris ?  ")
	require.NoError(t, err)
	assert.Equal(t, "18°C, ensoleillé", res)
	assert.Equal(t, "Quel temps à Paris ?", got.Question)
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	ch, calls := newTestChannel(t, answer("nope"))

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := ch.Ask(context.Background(), q)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestAskMissingAnswer(t *testing.T) {
	for _, body := range []string{`{}`, `{"answer":null}`, `{"answer":"  "}`, `oops`} {
		body := body
		t.Run(body, func(t *testing.T) {
			ch, _ := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			res, err := ch.Ask(context.Background(), "Et demain ?")
			require.NoError(t, err)
			assert.Equal(t, NoAnswer, res)
		})
	}
}

func TestAskRequestFailed(t *testing.T) {
	ch, _ := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := ch.Ask(context.Background(), "Va-t-il pleuvoir ?")
	require.ErrorIs(t, err, common.ErrRequestFailed)
	assert.Equal(t, "Erreur 503: Service Unavailable", common.Reason(err))
}

func TestConversationRecordsExchange(t *testing.T) {
	ch, _ := newTestChannel(t, answer("18°C, ensoleillé"))
	conv := NewConversation(ch)
	require.NotEmpty(t, conv.ID)

	msgs, err := conv.Send(context.Background(), "Quel temps à Paris ?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Quel temps à Paris ?", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "18°C, ensoleillé", msgs[1].Content)

	msgs, err = conv.Send(context.Background(), "Et à Lyon ?")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
	assert.False(t, conv.Busy())
}

func TestConversationBackendFailureBecomesMessage(t *testing.T) {
	ch, _ := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("agent indisponible"))
	})
	conv := NewConversation(ch)

	msgs, err := conv.Send(context.Background(), "Quel temps à Paris ?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Erreur : agent indisponible", msgs[1].Content)
}

func TestConversationTransportFailureBecomesMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := transport.New(transport.Config{BaseURL: url})
	require.NoError(t, err)
	conv := NewConversation(NewChannel(client))

	msgs, err := conv.Send(context.Background(), "Quel temps à Paris ?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Erreur : "+Unreachable, msgs[1].Content)
}

func TestConversationBlankLeavesTranscript(t *testing.T) {
	ch, calls := newTestChannel(t, answer("x"))
	conv := NewConversation(ch)

	msgs, err := conv.Send(context.Background(), "  ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Empty(t, msgs)
	assert.Equal(t, int32(0), calls.Load())
}

func TestConversationOneQuestionInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ch, _ := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		answer("ok")(w, r)
	})
	conv := NewConversation(ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := conv.Send(context.Background(), "première")
		assert.NoError(t, err)
	}()

	<-entered
	assert.True(t, conv.Busy())
	msgs, err := conv.Send(context.Background(), "deuxième")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, msgs, 1)

	close(release)
	wg.Wait()
	assert.Len(t, conv.Messages(), 2)
}
