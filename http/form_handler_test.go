package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dh-form/domain"
	"dh-form/i18n"
	"dh-form/repository"
	"dh-form/service"
)

const okResponse = `{"result": [[1.0, 2.0], [3.0, 4.0]], "coord": {"x": 1, "y": 2, "z": 3}}`

// fakeCompute stands in for the remote calculation service.
type fakeCompute struct {
	mu     sync.Mutex
	status int
	body   string
	calls  int
}

func (f *fakeCompute) set(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeCompute) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	w.WriteHeader(f.status)
	io.WriteString(w, f.body)
}

type testApp struct {
	handler http.Handler
	compute *fakeCompute
	cookie  *http.Cookie
	limiter *RateLimiter
}

func newTestApp(t *testing.T, rateCapacity int) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	compute := &fakeCompute{status: http.StatusOK, body: okResponse}
	srv := httptest.NewServer(compute)
	t.Cleanup(srv.Close)

	ids := domain.NewSequenceGenerator("r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8")
	formService := service.NewFormService(
		repository.NewMemoryCache(),
		repository.NewHistoryMemory(),
		service.NewComputeClient(srv.URL, 0, logger),
		ids,
		service.DefaultFormOptions(),
		logger,
	)

	limiter := NewRateLimiter(rateCapacity, time.Hour)
	t.Cleanup(limiter.Stop)

	forms := NewFormHandler(formService, i18n.NewBundle(), logger)
	forms.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC) }
	api := NewAPIHandler(formService, logger)

	return &testApp{
		handler: NewRouter(forms, api, limiter, time.Hour, logger),
		compute: compute,
		limiter: limiter,
	}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			a.cookie = c
		}
	}
	return w
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := a.do(t, req)
	return w
}

func filledForm(ids ...string) url.Values {
	v := url.Values{}
	for _, id := range ids {
		v.Set("a-"+id, "1")
		v.Set("alpha-"+id, "0")
		v.Set("d-"+id, "0")
		v.Set("theta-"+id, "90")
	}
	return v
}

func assertRedirectHome(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestIndex_InitialForm(t *testing.T) {
	app := newTestApp(t, 10)

	w := app.get(t, "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.NotNil(t, app.cookie)
	assert.True(t, app.cookie.HttpOnly)

	body := w.Body.String()
	assert.Contains(t, body, `<html lang="pt-BR">`)
	assert.Contains(t, body, "<h1 class=\"title\">Denavit-Hartenberg</h1>")
	for _, name := range []string{"a-r1", "alpha-r1", "d-r1", "theta-r1"} {
		assert.Contains(t, body, `name="`+name+`"`)
	}
	for _, label := range []string{">A0<", ">α0<", ">D0<", ">θ0<"} {
		assert.Contains(t, body, label)
	}
	assert.Equal(t, 4, strings.Count(body, " required>"))
	assert.Contains(t, body, ">Calcular</button>")
	assert.Contains(t, body, ">Limpar</button>")
	assert.NotContains(t, body, "Resultado:")
	assert.NotContains(t, body, "<hr")
	assert.NotContains(t, body, `id="notification"`)
}

func TestIndex_UnknownPath(t *testing.T) {
	app := newTestApp(t, 10)
	w := app.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndex_English(t *testing.T) {
	app := newTestApp(t, 10)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	w := app.do(t, req)

	body := w.Body.String()
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, ">Calculate</button>")
	assert.Contains(t, body, ">Clear</button>")
}

func TestAddAndRemoveRows(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")

	assertRedirectHome(t, app.post(t, "/rows/add", url.Values{"a-r1": {"5"}}))
	assertRedirectHome(t, app.post(t, "/rows/add", nil))

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, `name="a-r2"`)
	assert.Contains(t, body, `name="a-r3"`)
	assert.Contains(t, body, ">A2<")
	assert.Contains(t, body, `value="5"`, "typed value survives the round trip")

	assertRedirectHome(t, app.post(t, "/rows/remove?id=r2", nil))
	body = app.get(t, "/").Body.String()
	assert.NotContains(t, body, `name="a-r2"`)
	assert.Contains(t, body, `name="a-r3"`)
	assert.Contains(t, body, ">A1<", "labels follow the current position")

	assertRedirectHome(t, app.post(t, "/rows/remove?id=ghost", nil))
	body = app.get(t, "/").Body.String()
	assert.Equal(t, 2, strings.Count(body, `class="input-content"`))
}

func TestCalculate_Success(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")

	assertRedirectHome(t, app.post(t, "/calculate", filledForm("r1")))

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, "Resultado:")
	assert.Contains(t, body, "<tr><td>1.0000</td><td>2.0000</td></tr>")
	assert.Contains(t, body, "<tr><td>3.0000</td><td>4.0000</td></tr>")
	assert.Contains(t, body, `<span class="result">X: 1.0000</span>`)
	assert.Contains(t, body, `<span class="result">Y: 2.0000</span>`)
	assert.Contains(t, body, `<span class="result">Z: 3.0000</span>`)
	assert.Contains(t, body, `<hr class="horizontal-line">`)
	assert.Equal(t, 1, app.compute.callCount())
}

func TestCalculate_FailureShowsNoticeOnce(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")
	app.post(t, "/calculate", filledForm("r1"))

	app.compute.set(http.StatusBadRequest, `{"message": "bad"}`)
	assertRedirectHome(t, app.post(t, "/calculate", filledForm("r1")))

	body := app.get(t, "/").Body.String()
	assert.Equal(t, 1, strings.Count(body, `id="notification"`))
	assert.Contains(t, body, "Erro!")
	assert.Contains(t, body, "Dados inválidos, tente novamente.")
	assert.Contains(t, body, `data-duration="3000"`)
	assert.NotContains(t, body, "bad", "server message is not shown")
	assert.Contains(t, body, "<td>1.0000</td>", "previous result stays")

	body = app.get(t, "/").Body.String()
	assert.NotContains(t, body, `id="notification"`)
	assert.Contains(t, body, "X: 1.0000")
}

func TestCalculate_ValidationSkipsCompute(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")

	form := filledForm("r1")
	form.Set("alpha-r1", "")
	assertRedirectHome(t, app.post(t, "/calculate", form))

	assert.Equal(t, 0, app.compute.callCount())
	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, "notification-validation")
	assert.Contains(t, body, `class="missing" id="alpha-r1"`)
}

func TestReset(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")
	app.post(t, "/rows/add", nil)
	app.post(t, "/calculate", filledForm("r1", "r2"))

	assertRedirectHome(t, app.post(t, "/reset", nil))

	body := app.get(t, "/").Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="input-content"`))
	assert.Contains(t, body, `name="a-r3"`)
	assert.NotContains(t, body, "Resultado:")
	assert.NotContains(t, body, "X: ")
}

func TestFormRoutes_MethodNotAllowed(t *testing.T) {
	app := newTestApp(t, 10)
	for _, path := range []string{"/rows/add", "/rows/remove", "/reset", "/calculate"} {
		w := app.get(t, path)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}
	w := app.post(t, "/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestResultPDF(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")

	w := app.get(t, "/result.pdf")
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.post(t, "/calculate", filledForm("r1"))
	w = app.get(t, "/result.pdf")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestCalculate_RateLimited(t *testing.T) {
	app := newTestApp(t, 1)
	app.get(t, "/")

	assertRedirectHome(t, app.post(t, "/calculate", filledForm("r1")))
	w := app.post(t, "/calculate", filledForm("r1"))

	assertRedirectHome(t, w)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1, app.compute.callCount())

	body := app.get(t, "/").Body.String()
	assert.Contains(t, body, "notification-danger")
	assert.Contains(t, body, "Muitos cálculos seguidos, aguarde um momento.")
	assert.Contains(t, body, "1.0000", "previous result is kept")
}

func TestAPICalculate_RateLimited(t *testing.T) {
	app := newTestApp(t, 1)
	body := `[{"a":"1","alpha":"0","d":"0","theta":"90"}]`

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return app.do(t, req)
	}

	assert.Equal(t, http.StatusOK, post().Code)
	assert.Equal(t, http.StatusTooManyRequests, post().Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, 10)
	w := app.get(t, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
	assert.Nil(t, app.cookie, "health checks get no session")
}

func TestSessionCookie_InvalidValueReplaced(t *testing.T) {
	app := newTestApp(t, 10)
	app.cookie = &http.Cookie{Name: sessionCookieName, Value: "not-a-uuid"}

	app.get(t, "/")

	require.NotNil(t, app.cookie)
	assert.NotEqual(t, "not-a-uuid", app.cookie.Value)
	assert.Len(t, app.cookie.Value, 36)
}

func TestAPICalculate(t *testing.T) {
	app := newTestApp(t, 10)
	body := `[{"a":"1","alpha":"0","d":"0","theta":"90"}]`

	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := app.do(t, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp calculateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, [][]string{{"1.0000", "2.0000"}, {"3.0000", "4.0000"}}, resp.Result)
	assert.Equal(t, &coordResponse{X: "1.0000", Y: "2.0000", Z: "3.0000"}, resp.Coord)
}

func TestAPICalculate_Errors(t *testing.T) {
	tests := []struct {
		name          string
		contentType   string
		body          string
		computeStatus int
		want          int
	}{
		{"wrong content type", "text/plain", `[]`, http.StatusOK, http.StatusUnsupportedMediaType},
		{"malformed body", "application/json", `{invalid-json}`, http.StatusOK, http.StatusBadRequest},
		{"empty field", "application/json", `[{"a":"1","alpha":"","d":"0","theta":"90"}]`, http.StatusOK, http.StatusBadRequest},
		{"no rows", "application/json", `[]`, http.StatusOK, http.StatusBadRequest},
		{"compute failure", "application/json", `[{"a":"1","alpha":"0","d":"0","theta":"90"}]`, http.StatusInternalServerError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, 10)
			app.compute.set(tt.computeStatus, okResponse)

			req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := app.do(t, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	app := newTestApp(t, 10)
	app.get(t, "/")
	app.post(t, "/calculate", filledForm("r1"))

	w := app.get(t, "/history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []historyEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, []domain.ParameterInput{{A: "1", Alpha: "0", D: "0", Theta: "90"}}, entries[0].Rows)
	assert.Equal(t, "1.0000", entries[0].Result[0][0])

	w = app.get(t, "/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
