package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := "\ufeffEmail,team,Name,college\n" +
		"ada@x.io,A7,Ada Lovelace,X\n" +
		",B1,Nobody,Y\n" +
		"bob@x.io, B12 , Bob ,Z\n" +
		"carl@x.io,,Carl\n"

	rows, dropped, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []Row{
		{Line: 2, Name: "Ada Lovelace", Email: "ada@x.io", TeamID: "A7"},
		{Line: 4, Name: "Bob", Email: "bob@x.io", TeamID: "B12"},
	}, rows)
	assert.Equal(t, "!register Ada Lovelace ada@x.io A7", rows[0].Command())
}

func TestReadCSV_BadHeader(t *testing.T) {
	t.Parallel()

	_, _, err := ReadCSV(strings.NewReader("name,email\nada,a@x.io\n"))
	require.ErrorIs(t, err, ErrBadHeader)

	_, _, err = ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrBadHeader)
}

type webhook struct {
	mu       sync.Mutex
	contents []string
	status   func(content string) int
}

func (w *webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	w.mu.Lock()
	w.contents = append(w.contents, body.Content)
	w.mu.Unlock()

	code := http.StatusNoContent
	if w.status != nil {
		code = w.status(body.Content)
	}
	if code == http.StatusNoContent {
		rw.WriteHeader(code)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_, _ = rw.Write([]byte(`{"message":"You are being rate limited."}`))
}

func (w *webhook) got() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.contents...)
}

func TestPoster_Run(t *testing.T) {
	t.Parallel()

	hook := &webhook{status: func(c string) int {
		if strings.Contains(c, "bob") {
			return http.StatusTooManyRequests
		}
		return http.StatusNoContent
	}}
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	p, err := NewPoster(srv.URL, WithDelay(0))
	require.NoError(t, err)

	rows := []Row{
		{Line: 2, Name: "Ada", Email: "ada@x.io", TeamID: "A1"},
		{Line: 3, Name: "Bob", Email: "bob@x.io", TeamID: "A2"},
		{Line: 4, Name: "Cy", Email: "cy@x.io", TeamID: "B3"},
	}
	rep, err := p.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, Report{Sent: 2, Failed: 1}, rep)
	assert.Equal(t, []string{
		"!register Ada ada@x.io A1",
		"!register Bob bob@x.io A2",
		"!register Cy cy@x.io B3",
	}, hook.got())
}

func TestPoster_PostRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&webhook{status: func(string) int { return http.StatusTooManyRequests }})
	t.Cleanup(srv.Close)

	p, err := NewPoster(srv.URL)
	require.NoError(t, err)

	err = p.Post(context.Background(), "!register a a@b.co A1")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestPoster_DryRunSendsNothing(t *testing.T) {
	t.Parallel()

	hook := &webhook{}
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	p, err := NewPoster(srv.URL, WithDryRun(true))
	require.NoError(t, err)

	rep, err := p.Run(context.Background(), []Row{{Line: 2, Name: "A", Email: "a@b.co", TeamID: "A1"}, {Line: 3, Name: "B", Email: "b@b.co", TeamID: "A2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Sent)
	assert.Empty(t, hook.got())
}

func TestPoster_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	hook := &webhook{}
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	p, err := NewPoster(srv.URL, WithDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for len(hook.got()) == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	rep, err := p.Run(ctx, []Row{{Line: 2, Name: "A", Email: "a@b.co", TeamID: "A1"}, {Line: 3, Name: "B", Email: "b@b.co", TeamID: "A2"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rep.Sent+rep.Failed)
	assert.Len(t, hook.got(), 1)
}

func TestNewPoster_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPoster(" ")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPoster("http://x", WithDelay(-time.Second))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPoster("http://x", WithLogger(nil))
	require.ErrorIs(t, err, ErrInvalidInput)
}
