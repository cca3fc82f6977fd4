package promosms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/promosms-notifier/internal/notifier"
)

type clientFunc func(req *http.Request) (*http.Response, error)

func (f clientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newGateway starts a TLS server answering every request with status and
// body, and returns a transport pointed at it.
func newGateway(t *testing.T, status int, body string, opts ...Option) (*Transport, *[]*http.Request, *[][]byte) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []*http.Request
		bodies   [][]byte
	)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, r)
		bodies = append(bodies, b)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	opts = append([]Option{WithHost(host), WithPort(port), WithHTTPClient(srv.Client())}, opts...)
	return New("login", "secret", "ACME", opts...), &requests, &bodies
}

func TestTransportString(t *testing.T) {
	cases := []struct {
		name string
		tr   *Transport
		want string
	}{
		{"defaults", New("l", "p", "ACME"), "promosms://promosms.com?from=ACME&type=1"},
		{"host and port", New("l", "p", "ACME", WithHost("sms.example.com"), WithPort(8443), WithType(TypeSpeed)), "promosms://sms.example.com:8443?from=ACME&type=4"},
		{"flash type omitted", New("l", "p", "ACME", WithType(TypeFlash)), "promosms://promosms.com?from=ACME"},
		{"empty from omitted", New("l", "p", "", WithType(TypeFull)), "promosms://promosms.com?type=3"},
		{"nothing to show", New("l", "p", "", WithType(TypeFlash)), "promosms://promosms.com"},
		{"from is escaped", New("l", "p", "A&B Co"), "promosms://promosms.com?from=A%26B+Co&type=1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.tr.String())
		})
	}
}

func TestTransportStringHidesCredentials(t *testing.T) {
	tr := New("login", "secret", "ACME")
	require.NotContains(t, tr.String(), "secret")
	require.NotContains(t, tr.String(), tr.authToken)
}

func TestTransportSupports(t *testing.T) {
	tr := New("l", "p", "ACME")
	require.True(t, tr.Supports(notifier.NewSMSMessage("+48500100200", "hi")))
	require.False(t, tr.Supports(notifier.NewChatMessage("hi")))
}

func TestSendRejectsNonSMSWithoutIO(t *testing.T) {
	calls := 0
	tr := New("l", "p", "ACME", WithHTTPClient(clientFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, `{}`), nil
	})))

	sent, err := tr.Send(context.Background(), notifier.NewChatMessage("hello"))
	require.Nil(t, sent)

	var unsupported *notifier.UnsupportedMessageTypeError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, notifier.KindSMS, unsupported.Expected)
	require.Equal(t, notifier.KindChat, unsupported.Got)
	require.Zero(t, calls)
}

func TestSendSuccess(t *testing.T) {
	tr, requests, bodies := newGateway(t, http.StatusOK,
		`{"response":{"recipientsResults":[{"status":0,"sms-id":"123"}]}}`,
		WithType(TypeFull))

	msg := notifier.NewSMSMessage("+48500100200", "Hello there")
	sent, err := tr.Send(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, "123", sent.MessageID())
	require.Same(t, msg, sent.OriginalMessage())
	require.Equal(t, tr.String(), sent.Transport())

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/api/rest/v3_2/sms", req.URL.Path)
	require.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("login:secret")), req.Header.Get("Authorization"))
	require.Equal(t, "text/json", req.Header.Get("Accept"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal((*bodies)[0], &payload))
	require.Equal(t, map[string]any{
		"type":                   float64(3),
		"sender":                 "ACME",
		"recipients":             []any{"+48500100200"},
		"text":                   "Hello there",
		"long-sms":               float64(1),
		"special-chars":          float64(1),
		"return-send-recipients": float64(1),
	}, payload)
}

func TestSendNumericMessageID(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK,
		`{"response":{"status":0,"recipientsResults":[{"status":0,"sms-id":98765}]}}`)

	sent, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.NoError(t, err)
	require.Equal(t, "98765", sent.MessageID())
}

func TestSendRecipientStatusFailure(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK,
		`{"response":{"recipientsResults":[{"status":5,"sms-id":"123"}]}}`)

	sent, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.Nil(t, sent)
	require.ErrorIs(t, err, notifier.ErrRejected)
	require.Contains(t, err.Error(), `"5"`)

	var te *notifier.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusOK, te.StatusCode)
	require.NotEmpty(t, te.Body)
}

func TestSendResponseStatusFallback(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK, `{"response":{"status":-1}}`)

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.ErrorIs(t, err, notifier.ErrRejected)
	require.Contains(t, err.Error(), `"-1"`)
}

func TestSendMissingStatusIsUnknownError(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK, `{"response":{}}`)

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.ErrorIs(t, err, notifier.ErrRejected)
	require.Contains(t, err.Error(), "unknown error")
}

func TestSendStringZeroStatusIsFailure(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK,
		`{"response":{"recipientsResults":[{"status":"0","sms-id":"1"}]}}`)

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.ErrorIs(t, err, notifier.ErrRejected)
}

func TestSendHTTPErrorStatus(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusInternalServerError, `{"status":"auth error"}`)

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.ErrorIs(t, err, notifier.ErrRejected)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "auth error")

	var te *notifier.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestSendHTTPErrorWithoutStatus(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusUnauthorized, `{}`)

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.ErrorIs(t, err, notifier.ErrRejected)
	require.Contains(t, err.Error(), "[401]")
	require.Contains(t, err.Error(), "unknown error")
}

func TestSendUndecodableBody(t *testing.T) {
	for _, body := range []string{"", "<html>oops</html>", "null", `"ok"`, `{"response":`} {
		t.Run(body, func(t *testing.T) {
			tr, _, _ := newGateway(t, http.StatusOK, body)

			_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
			require.ErrorIs(t, err, notifier.ErrUndecodable)
			require.Contains(t, err.Error(), "could not decode body")
		})
	}
}

func TestSendMissingMessageID(t *testing.T) {
	tr, _, _ := newGateway(t, http.StatusOK, `{"response":{"status":0}}`)

	sent, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.Nil(t, sent)
	require.ErrorIs(t, err, notifier.ErrUndecodable)
}

func TestSendNetworkFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tr := New("l", "p", "ACME", WithHTTPClient(clientFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})))

	sent, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.Nil(t, sent)
	require.ErrorIs(t, err, notifier.ErrUnreachable)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "could not reach")
}

func TestSendUsesDefaultHost(t *testing.T) {
	var got *url.URL
	tr := New("l", "p", "ACME", WithHTTPClient(clientFunc(func(req *http.Request) (*http.Response, error) {
		got = req.URL
		return jsonResponse(200, `{"response":{"recipientsResults":[{"status":0,"sms-id":"1"}]}}`), nil
	})))

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.NoError(t, err)
	require.Equal(t, "https://promosms.com/api/rest/v3_2/sms", got.String())
}

func TestSendDispatchesEvents(t *testing.T) {
	var events []notifier.Event
	d := notifier.DispatcherFunc(func(_ context.Context, e notifier.Event) {
		events = append(events, e)
	})

	tr, _, _ := newGateway(t, http.StatusOK,
		`{"response":{"recipientsResults":[{"status":0,"sms-id":"7"}]}}`,
		WithDispatcher(d))

	_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.IsType(t, notifier.MessageEvent{}, events[0])
	require.IsType(t, notifier.SentMessageEvent{}, events[1])
}

func TestSendIsSafeForConcurrentUse(t *testing.T) {
	tr, requests, _ := newGateway(t, http.StatusOK,
		`{"response":{"recipientsResults":[{"status":0,"sms-id":"1"}]}}`)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Send(context.Background(), notifier.NewSMSMessage("+48500100200", "hi"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, *requests, 8)
}
