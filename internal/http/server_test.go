package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tazzio/internal/core"
	"tazzio/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	srv *Server
	mem *memory.Store
	// authNow is the remote's clock; sessions expire against it.
	authNow time.Time
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{t: t, authNow: fixedNow}
	mem := memory.New(
		memory.WithBcryptCost(bcrypt.MinCost),
		memory.WithClock(func() time.Time { return h.authNow }),
		memory.WithSessionTTL(time.Hour),
	)
	cfg := Config{
		Remote:             mem,
		RateLimitPerMinute: 1000,
		Now:                func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv := NewServer(cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	h.srv, h.mem = srv, mem
	return h
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.1:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (h *harness) signIn(email string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "displayName": "Test",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[signInResponse](h.t, rec).Token
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorDetail {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, code, body.Error.Code)
	return body.Error
}

type stateBody struct {
	Identity core.Identity `json:"identity"`
	Language string        `json:"language"`
	Currency string        `json:"currency"`
	Month    string        `json:"month"`
	Totals   struct {
		Expenses  core.Money `json:"expenses"`
		Income    core.Money `json:"income"`
		Budget    core.Money `json:"budget"`
		Remaining core.Money `json:"remaining"`
	} `json:"totals"`
	Display struct {
		Expenses string `json:"expenses"`
	} `json:"display"`
	Categories []struct {
		ID     string     `json:"id"`
		Spent  core.Money `json:"spent"`
		Status string     `json:"status"`
	} `json:"categories"`
	Buyers   []core.Buyer   `json:"buyers"`
	Expenses []core.Expense `json:"expenses"`
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/readyz", "", nil).Code)

	down := newHarness(t, func(c *Config) {
		c.Ping = func(context.Context) error { return errors.New("db down") }
	})
	assertError(t, down.do(http.MethodGet, "/readyz", "", nil), http.StatusServiceUnavailable, CodeRemote)
}

func TestMiddlewareChain(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/.git/config", "", nil).Code)
	assertError(t, h.do(http.MethodGet, "/api/nothing", "", nil), http.StatusNotFound, CodeNotFound)
	assert.Equal(t, int64(1), h.srv.Metrics().SuspiciousRequests)
}

func TestSignUpAndSignIn(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("alice@example.com")
	assert.NotEmpty(t, token)

	rec := h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "alice@example.com", "password": "secret1"})
	assertError(t, rec, http.StatusConflict, CodeEmailTaken)

	rec = h.do(http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "not-an-email", "password": "secret1"})
	detail := assertError(t, rec, http.StatusUnprocessableEntity, CodeValidation)
	assert.Equal(t, "email", detail.Field)

	rec = h.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "alice@example.com", "password": "wrong!"})
	assertError(t, rec, http.StatusUnauthorized, CodeInvalidCredentials)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/state", "", nil)
	assertError(t, rec, http.StatusUnauthorized, CodeNotAuthenticated)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	assertError(t, h.do(http.MethodGet, "/api/state", "bogus", nil), http.StatusUnauthorized, CodeNotAuthenticated)
}

func TestStateProvisionsDefaults(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("bob@example.com")

	rec := h.do(http.MethodGet, "/api/state", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[stateBody](t, rec)
	assert.Equal(t, "bob@example.com", st.Identity.Email)
	assert.Equal(t, "2024-03", st.Month)
	assert.Len(t, st.Categories, 8)
	assert.Len(t, st.Buyers, 2)
	assert.True(t, st.Totals.Expenses.IsZero())
	assert.Empty(t, st.Expenses)
}

func TestExpenseLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("carol@example.com")

	rec := h.do(http.MethodPost, "/api/expenses", token, `{"amount":"42.50","categoryId":"food","buyerId":"1","description":"groceries"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Expense](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/expenses/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, "2024-03-15", created.Date.String())
	assert.True(t, created.Amount.Equal(core.MustParseMoney("42.50")))

	rec = h.do(http.MethodPost, "/api/expenses", token, `{"amount":12,"categoryId":"transport","buyerId":"2","date":"2024-02-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	st := decode[stateBody](t, h.do(http.MethodGet, "/api/state", token, nil))
	assert.True(t, st.Totals.Expenses.Equal(core.MustParseMoney("42.50")), "only March counts")
	require.Len(t, st.Expenses, 1)
	for _, c := range st.Categories {
		if c.ID == "food" {
			assert.True(t, c.Spent.Equal(core.MustParseMoney("42.50")))
		}
	}

	all := decode[[]core.Expense](t, h.do(http.MethodGet, "/api/expenses", token, nil))
	assert.Len(t, all, 2)

	rec = h.do(http.MethodPut, "/api/expenses/"+created.ID, token, `{"amount":"50","categoryId":"food","buyerId":"2","date":"2024-03-14"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2", decode[core.Expense](t, rec).BuyerID)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/expenses/"+created.ID, token, nil).Code)
	assertError(t, h.do(http.MethodDelete, "/api/expenses/"+created.ID, token, nil), http.StatusNotFound, CodeNotFound)
}

func TestListExpensesFilters(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("erin@example.com")

	for _, body := range []string{
		`{"amount":"1","categoryId":"food","buyerId":"1","date":"2024-01-05"}`,
		`{"amount":"2","categoryId":"food","buyerId":"2","date":"2024-03-05"}`,
		`{"amount":"3","categoryId":"bills","buyerId":"1","date":"2024-02-05"}`,
	} {
		require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/expenses", token, body).Code)
	}

	amounts := func(path string) []string {
		rec := h.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := []string{}
		for _, e := range decode[[]core.Expense](t, rec) {
			out = append(out, e.Amount.String())
		}
		return out
	}
	assert.Equal(t, []string{"2.00", "3.00", "1.00"}, amounts("/api/expenses"))
	assert.Equal(t, []string{"2.00", "1.00"}, amounts("/api/expenses?categoryId=food"))
	assert.Equal(t, []string{"3.00", "1.00"}, amounts("/api/expenses?buyerId=1"))
	assert.Equal(t, []string{"1.00"}, amounts("/api/expenses?categoryId=food&buyerId=1"))

	rec := h.do(http.MethodGet, "/api/expenses?categoryId=housing", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExpenseValidation(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("dave@example.com")

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"missing amount", `{"categoryId":"food","buyerId":"1"}`, http.StatusUnprocessableEntity, "amount"},
		{"negative amount", `{"amount":"-3","categoryId":"food","buyerId":"1"}`, http.StatusUnprocessableEntity, "amount"},
		{"sub-cent amount", `{"amount":"3.456","categoryId":"food","buyerId":"1"}`, http.StatusUnprocessableEntity, "amount"},
		{"unknown category", `{"amount":"3","categoryId":"yachts","buyerId":"1"}`, http.StatusUnprocessableEntity, "categoryId"},
		{"unknown field", `{"amount":"3","categoryId":"food","buyerId":"1","tip":1}`, http.StatusBadRequest, ""},
		{"malformed", `{"amount":`, http.StatusBadRequest, ""},
		{"empty", ``, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/expenses", token, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[ErrorBody](t, rec).Error.Field)
			}
		})
	}
}

func TestConflictsAreTranslated(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("erin@example.com")

	rec := h.do(http.MethodPost, "/api/expenses", token, `{"amount":"10","categoryId":"food","buyerId":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	detail := assertError(t, h.do(http.MethodDelete, "/api/categories/food", token, nil), http.StatusConflict, CodeConflict)
	assert.Equal(t, "Cette catégorie est utilisée par des dépenses", detail.Message)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/settings/language", token, map[string]string{"language": "en-GB"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/buyers/2", token, nil).Code)
	detail = assertError(t, h.do(http.MethodDelete, "/api/buyers/1", token, nil), http.StatusConflict, CodeConflict)
	assert.Equal(t, "At least one buyer must remain", detail.Message)
}

func TestSettingsEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("frank@example.com")

	rec := h.do(http.MethodPost, "/api/buyers", token, map[string]string{"name": "Kid"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kid := decode[core.Buyer](t, rec)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/buyers/"+kid.ID, token, map[string]string{"name": "Junior"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/buyers/1/income", token, map[string]string{"amount": "1200"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/buyers/2/income", token, map[string]string{"amount": "800"}).Code)
	assertError(t, h.do(http.MethodPut, "/api/buyers/zzz/income", token, map[string]string{"amount": "1"}), http.StatusNotFound, CodeNotFound)

	rec = h.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Pets"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pets := decode[core.Category](t, rec)
	assert.Equal(t, "📦", pets.Icon)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/categories/"+pets.ID, token, map[string]string{"name": "Animals"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/budgets/food", token, map[string]string{"amount": "300"}).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/categories/"+pets.ID, token, nil).Code)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/settings/currency", token, map[string]string{"currency": "$"}).Code)
	assertError(t, h.do(http.MethodPut, "/api/settings/language", token, map[string]string{"language": "klingon"}), http.StatusUnprocessableEntity, CodeValidation)

	st := decode[stateBody](t, h.do(http.MethodGet, "/api/state", token, nil))
	assert.True(t, st.Totals.Income.Equal(core.MustParseMoney("2000")))
	assert.True(t, st.Totals.Budget.Equal(core.MustParseMoney("300")))
	assert.True(t, st.Totals.Remaining.Equal(core.MustParseMoney("2000")))
	assert.Equal(t, "$", st.Currency)
	assert.Equal(t, "0.00 $", st.Display.Expenses)
	assert.Len(t, st.Buyers, 3)
}

func TestSavingsEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("gina@example.com")

	rec := h.do(http.MethodPost, "/api/savings", token, map[string]string{"name": "Holiday", "targetAmount": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[savingsView](t, rec)

	rec = h.do(http.MethodPost, "/api/savings/"+goal.ID+"/contributions", token, map[string]string{"amount": "600"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[savingsView](t, rec)
	assert.InDelta(t, 60.0, got.Progress, 0.001)
	assert.False(t, got.Completed)

	rec = h.do(http.MethodPost, "/api/savings/"+goal.ID+"/contributions", token, map[string]string{"amount": "500"})
	assert.True(t, decode[savingsView](t, rec).Completed)

	assertError(t, h.do(http.MethodPost, "/api/savings/"+goal.ID+"/contributions", token, map[string]string{"amount": "0"}), http.StatusUnprocessableEntity, CodeValidation)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/savings/"+goal.ID, token, nil).Code)
	assertError(t, h.do(http.MethodDelete, "/api/savings/"+goal.ID, token, nil), http.StatusNotFound, CodeNotFound)
}

func TestReportsAndTranslations(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("hank@example.com")

	for _, body := range []string{
		`{"amount":"10","categoryId":"food","buyerId":"1","date":"2024-03-12"}`,
		`{"amount":"30","categoryId":"food","buyerId":"2","date":"2024-03-01"}`,
		`{"amount":"60","categoryId":"bills","buyerId":"2","date":"2024-01-20"}`,
	} {
		require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/expenses", token, body).Code)
	}

	type reportBody struct {
		Period  string                `json:"period"`
		Count   int                   `json:"count"`
		Total   core.Money            `json:"total"`
		ByBuyer map[string]core.Money `json:"byBuyer"`
	}
	week := decode[reportBody](t, h.do(http.MethodGet, "/api/reports?period=week", token, nil))
	assert.Equal(t, 1, week.Count)
	month := decode[reportBody](t, h.do(http.MethodGet, "/api/reports", token, nil))
	assert.Equal(t, "month", month.Period)
	assert.Equal(t, 2, month.Count)
	year := decode[reportBody](t, h.do(http.MethodGet, "/api/reports?period=year", token, nil))
	assert.True(t, year.Total.Equal(core.MustParseMoney("100")))
	assert.True(t, year.ByBuyer["2"].Equal(core.MustParseMoney("90")))

	assertError(t, h.do(http.MethodGet, "/api/reports?period=decade", token, nil), http.StatusUnprocessableEntity, CodeValidation)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/settings/language", token, map[string]string{"language": "en"}).Code)
	tr := decode[map[string]string](t, h.do(http.MethodGet, "/api/translations/budget.status.safe", token, nil))
	assert.Equal(t, "On track", tr["value"])

	q := decode[map[string]string](t, h.do(http.MethodGet, "/api/quote", token, nil))
	assert.NotEmpty(t, q["quote"])
}

func TestSignOutAndRestore(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("ivy@example.com")
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/expenses", token, `{"amount":"5","categoryId":"food","buyerId":"1"}`).Code)
	assert.Equal(t, 1, h.srv.registry.Size())

	// Dropping cached workspaces keeps the remote session usable.
	h.srv.registry.Close()
	assert.Equal(t, 0, h.srv.registry.Size())
	st := decode[stateBody](t, h.do(http.MethodGet, "/api/state", token, nil))
	assert.Len(t, st.Expenses, 1)
	assert.Equal(t, 1, h.srv.registry.Size())

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/auth/signout", token, nil).Code)
	assert.Equal(t, 0, h.srv.registry.Size())
	assertError(t, h.do(http.MethodGet, "/api/state", token, nil), http.StatusUnauthorized, CodeNotAuthenticated)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("kim@example.com")
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/expenses", token, `{"amount":"5","categoryId":"food","buyerId":"1"}`).Code)
	require.Equal(t, 1, h.srv.registry.Size())

	h.authNow = h.authNow.Add(48 * time.Hour)
	_, err := h.mem.SessionIdentity(context.Background(), token)
	require.Error(t, err)

	assertError(t, h.do(http.MethodPost, "/api/expenses", token, `{"amount":"5","categoryId":"food","buyerId":"1"}`), http.StatusUnauthorized, CodeNotAuthenticated)
	assert.Equal(t, 0, h.srv.registry.Size(), "the workspace is released")
	assertError(t, h.do(http.MethodPut, "/api/settings/currency", token, `{"currency":"$"}`), http.StatusUnauthorized, CodeNotAuthenticated)
	assertError(t, h.do(http.MethodGet, "/api/state", token, nil), http.StatusUnauthorized, CodeNotAuthenticated)

	// Signing in again works and sees the data written before expiry.
	rec := h.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "kim@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decode[signInResponse](t, rec).Token
	assert.Len(t, decode[[]core.Expense](t, h.do(http.MethodGet, "/api/expenses", fresh, nil)), 1)
}

func TestAccountEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signIn("jack@example.com")

	rec := h.do(http.MethodPut, "/api/auth/email", token, map[string]string{"email": "jack@example.org"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "jack@example.org", decode[core.Identity](t, rec).Email)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPut, "/api/auth/password", token, map[string]string{"password": "newpass1"}).Code)
	assertError(t, h.do(http.MethodPut, "/api/auth/password", token, map[string]string{"password": "abc"}), http.StatusUnprocessableEntity, CodeValidation)

	rec = h.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "jack@example.org", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	h.signIn("kate@example.com")

	assert.Equal(t, http.StatusAccepted, h.do(http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "kate@example.com"}).Code)
	assert.Equal(t, http.StatusAccepted, h.do(http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "nobody@example.com"}).Code)

	resetToken, err := h.mem.IssueResetToken(context.Background(), "kate@example.com")
	require.NoError(t, err)

	rec := h.do(http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{"token": "nope", "password": "another1"})
	detail := assertError(t, rec, http.StatusUnprocessableEntity, CodeValidation)
	assert.True(t, strings.Contains(detail.Message, "token"))

	rec = h.do(http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{"token": resetToken, "password": "another1"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "kate@example.com", "password": "another1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.RateLimitPerMinute = 2 })
	creds := map[string]string{"email": "x@example.com", "password": "whatever"}

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/signin", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/signin", "", creds).Code)
	rec := h.do(http.MethodPost, "/api/auth/signin", "", creds)
	assertError(t, rec, http.StatusTooManyRequests, CodeRateLimited)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code, "reads are not limited")
	assert.Equal(t, int64(1), h.srv.Metrics().RateLimited)
}
