package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
	"github.com/stretchr/testify/require"
)

// capHandler — slog.Handler без I/O: копит attrs из Logger.With(...)
// и запоминает последнюю запись.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	records []string
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	h.records = append(h.records, r.Message)
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	var seenHeader, seenCtx string
	h := chi.Chain(RequestID()).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get("X-Request-Id")
		seenCtx, _ = r.Context().Value(upstream.CtxRequestID).(string)
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/rid"))

	id := rr.Header().Get("X-Request-Id")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, id, seenHeader)
	require.Equal(t, id, seenCtx)
}

func TestRequestID_IncomingValues(t *testing.T) {
	cases := []struct {
		name string
		in   string
		keep bool
	}{
		{"plain", "abc123-existing-id", true},
		{"with_space", "abc 123", false},
		{"control_char", "abc\x01", false},
		{"too_long", strings.Repeat("a", 129), false},
		{"max_len", strings.Repeat("a", 128), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seenCtx string
			h := chi.Chain(RequestID()).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenCtx = requestID(r.Context())
			})

			rr := httptest.NewRecorder()
			req := makeReq("/rid")
			req.Header.Set("X-Request-Id", tc.in)
			h.ServeHTTP(rr, req)

			got := rr.Header().Get("X-Request-Id")
			require.Equal(t, got, seenCtx)
			if tc.keep {
				require.Equal(t, tc.in, got)
			} else {
				require.NotEqual(t, tc.in, got)
			}
		})
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := chi.Chain(Timeout(50 * time.Millisecond)).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	h.ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))
	require.True(t, hasDeadline)
}

func TestTimeout_KeepsEarlierParentDeadline(t *testing.T) {
	var childDL time.Time
	h := chi.Chain(Timeout(time.Second)).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	h.ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_ZeroIsNoop(t *testing.T) {
	var hasDeadline bool
	h := chi.Chain(Timeout(0)).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	h.ServeHTTP(httptest.NewRecorder(), makeReq("/t"))
	require.False(t, hasDeadline)
}

func TestTimeout_LogsExceededDeadline(t *testing.T) {
	ch := &capHandler{}
	h := chi.Chain(Logging(slog.New(ch)), Timeout(5*time.Millisecond)).
		HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusGatewayTimeout)
		})

	h.ServeHTTP(httptest.NewRecorder(), makeReq("/slow"))

	require.Equal(t, []string{"request_deadline_exceeded", "http"}, ch.records)
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	h := chi.Chain(Recover()).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "internal", env.Error.Code)
	require.NotContains(t, env.Error.Message, "boom")
}

func TestRecover_RepanicsAbortHandler(t *testing.T) {
	h := chi.Chain(Recover()).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), makeReq("/abort"))
	})
}

func TestLogging_RecordFields(t *testing.T) {
	ch := &capHandler{}

	const rid = "rid-456"
	h := chi.Chain(RequestID(), Logging(slog.New(ch))).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// без WriteHeader: статус становится 200 на первом Write
		_, _ = w.Write([]byte("0123456789"))
	})

	req := makeReq("/log?token=secret")
	req.Header.Set("X-Request-Id", rid)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, []string{"http"}, ch.records)
	require.Equal(t, slog.LevelInfo, ch.lastLvl)
	require.Equal(t, http.MethodGet, ch.attrs["method"])
	require.Equal(t, "/log", ch.attrs["path"])
	require.EqualValues(t, http.StatusOK, ch.attrs["status"])
	require.EqualValues(t, 10, ch.attrs["bytes"])
	require.Equal(t, rid, ch.attrs["request_id"])
	require.Contains(t, ch.attrs, "dur")
}

func TestLogging_ServerErrorIsErrorLevel(t *testing.T) {
	ch := &capHandler{}
	h := chi.Chain(Logging(slog.New(ch))).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	h.ServeHTTP(httptest.NewRecorder(), makeReq("/boom"))

	require.Equal(t, slog.LevelError, ch.lastLvl)
	require.EqualValues(t, http.StatusBadGateway, ch.attrs["status"])
}

func TestLogging_RoutePattern(t *testing.T) {
	ch := &capHandler{}
	r := chi.NewRouter()
	r.Use(Logging(slog.New(ch)))
	r.Get("/api/auth/proxy/*", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/api/auth/proxy/users/1"))

	require.Equal(t, "/api/auth/proxy/*", ch.attrs["route"])
	require.EqualValues(t, http.StatusOK, ch.attrs["status"])
}

func TestTrackingWriter(t *testing.T) {
	t.Run("first_status_wins", func(t *testing.T) {
		tw := track(httptest.NewRecorder())
		tw.WriteHeader(http.StatusCreated)
		tw.WriteHeader(http.StatusInternalServerError)
		_, _ = tw.Write([]byte("abcd"))

		require.Equal(t, http.StatusCreated, tw.code())
		require.Equal(t, 4, tw.bytes)
	})

	t.Run("flush_passes_through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		tw := track(rr)
		tw.Flush()

		require.True(t, rr.Flushed)
		require.Equal(t, http.StatusOK, tw.code())
	})

	t.Run("response_controller_unwraps", func(t *testing.T) {
		rr := httptest.NewRecorder()
		require.NoError(t, http.NewResponseController(track(rr)).Flush())
		require.True(t, rr.Flushed)
	})
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/auth/proxy/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/auth/proxy/*", "202")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/api/auth/proxy/users/1"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/api/auth/proxy/roles"))

	require.Equal(t, before+2, testutil.ToFloat64(counter))
}
