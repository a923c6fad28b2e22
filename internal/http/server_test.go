package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"duit/internal/services"
	"duit/internal/storage"
	"duit/internal/store/memory"
)

const (
	testOwnerUser = "paisx"
	testOwnerPass = "2009"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "duit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}

	remote := memory.NewStore()
	txService := services.NewTransactionService(repo, remote, nil)
	authService := services.NewAuthService(repo, remote, testOwnerUser, testOwnerPass)

	s := NewServer("127.0.0.1:0", txService, authService)
	s.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		repo.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func login(t *testing.T, baseURL, username, password string) string {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, baseURL+"/api/login", "", loginRequest{
		Username: username,
		Password: password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d: %s", resp.StatusCode, data)
	}
	var out loginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("login returned empty token")
	}
	return out.Token
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t)

	token := login(t, ts.URL, testOwnerUser, testOwnerPass)
	if token == "" {
		t.Fatal("expected token")
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{
		Username: testOwnerUser,
		Password: "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/login", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET login, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from logout, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestTransactionsRequireSession(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/transactions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", "bogus", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown token, got %d", resp.StatusCode)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type:        "income",
		Amount:      "200.000",
		Description: "Gaji bulanan",
		Date:        "2024-03-10",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.StatusCode, data)
	}
	var created transactionPayload
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created transaction: %v", err)
	}
	if created.Amount.Units != 200000 || created.Amount.Display != "Rp200.000" {
		t.Errorf("unexpected amount payload: %+v", created.Amount)
	}

	resp, data = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list returned %d", resp.StatusCode)
	}
	var listed []transactionPayload
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}

	resp, data = doJSON(t, http.MethodPut, ts.URL+"/api/transactions/"+created.ID, token, transactionRequest{
		Type:        "expense",
		Amount:      "50000",
		Description: "Makan",
		Date:        "2024-03-11",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update returned %d: %s", resp.StatusCode, data)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing transaction, got %d", resp.StatusCode)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	tests := []struct {
		name string
		req  transactionRequest
	}{
		{"zero amount", transactionRequest{Type: "income", Amount: "0", Description: "x", Date: "2024-03-10"}},
		{"bad kind", transactionRequest{Type: "transfer", Amount: "1000", Description: "x", Date: "2024-03-10"}},
		{"bad date", transactionRequest{Type: "income", Amount: "1000", Description: "x", Date: "10/03/2024"}},
		{"negative amount", transactionRequest{Type: "income", Amount: "-1000", Description: "x", Date: "2024-03-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, tt.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", resp.StatusCode, data)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "income", Amount: "200.000", Description: "Gaji", Date: "2024-03-10",
	})
	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "50.000", Description: "Makan", Date: "2024-03-12",
	})

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/api/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats returned %d", resp.StatusCode)
	}
	var st statsPayload
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.MonthlyIncome.Units != 200000 || st.MonthlyExpense.Units != 50000 || st.MonthlyBalance.Units != 150000 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.MonthlyBalance.Display != "Rp150.000" {
		t.Errorf("unexpected display: %q", st.MonthlyBalance.Display)
	}

	// A mutation must invalidate the cached figures.
	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "10.000", Description: "Kopi", Date: "2024-03-14",
	})
	_, data = doJSON(t, http.MethodGet, ts.URL+"/api/stats", token, nil)
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.MonthlyExpense.Units != 60000 {
		t.Errorf("stale stats after mutation: %+v", st)
	}
}

func TestSeriesEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "income", Amount: "200.000", Description: "Gaji", Date: "2024-03-15",
	})

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/api/series?window=last-7-days", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("series returned %d", resp.StatusCode)
	}
	var series seriesPayload
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if series.Window != "last-7-days" || len(series.Buckets) != 8 {
		t.Fatalf("unexpected series shape: window=%s buckets=%d", series.Window, len(series.Buckets))
	}
	last := series.Buckets[len(series.Buckets)-1]
	if last.Income.Units != 200000 || last.Net.Units != 200000 {
		t.Errorf("unexpected last bucket: %+v", last)
	}

	// Default window is the 30-day view.
	_, data = doJSON(t, http.MethodGet, ts.URL+"/api/series", token, nil)
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if series.Window != "last-30-days" || len(series.Buckets) != 31 {
		t.Errorf("unexpected default series: window=%s buckets=%d", series.Window, len(series.Buckets))
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/series?window=fortnight", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown window, got %d", resp.StatusCode)
	}
}

func TestBreakdownEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts.URL, testOwnerUser, testOwnerPass)

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "income", Amount: "300.000", Description: "Gaji", Date: "2024-03-10",
	})
	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, transactionRequest{
		Type: "expense", Amount: "120.000", Description: "Belanja", Date: "2024-03-12",
	})

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/api/breakdown?window=this-year", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("breakdown returned %d", resp.StatusCode)
	}
	var bd breakdownPayload
	if err := json.Unmarshal(data, &bd); err != nil {
		t.Fatalf("decode breakdown: %v", err)
	}
	if bd.TotalIncome.Units != 300000 || bd.TotalExpense.Units != 120000 {
		t.Errorf("unexpected breakdown: %+v", bd)
	}
}

func TestUserManagementEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	ownerToken := login(t, ts.URL, testOwnerUser, testOwnerPass)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/users", ownerToken, createUserRequest{
		Username: "budi",
		Password: "rahasia",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user returned %d: %s", resp.StatusCode, data)
	}
	var created userPayload
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if created.Role != "user" {
		t.Errorf("expected user role, got %q", created.Role)
	}

	userToken := login(t, ts.URL, "budi", "rahasia")
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/users", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", resp.StatusCode)
	}

	resp, data = doJSON(t, http.MethodGet, ts.URL+"/api/users", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users returned %d", resp.StatusCode)
	}
	var users []userPayload
	if err := json.Unmarshal(data, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "budi" {
		t.Fatalf("unexpected users: %+v", users)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/users/delete", ownerToken, deleteUserRequest{ID: created.ID})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete user returned %d", resp.StatusCode)
	}
}

func TestUsersIsolatedBetweenAccounts(t *testing.T) {
	_, ts := newTestServer(t)
	ownerToken := login(t, ts.URL, testOwnerUser, testOwnerPass)

	doJSON(t, http.MethodPost, ts.URL+"/api/users", ownerToken, createUserRequest{
		Username: "budi", Password: "rahasia",
	})
	userToken := login(t, ts.URL, "budi", "rahasia")

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", ownerToken, transactionRequest{
		Type: "income", Amount: "500.000", Description: "Gaji", Date: "2024-03-10",
	})
	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", userToken, transactionRequest{
		Type: "expense", Amount: "25.000", Description: "Kopi", Date: "2024-03-11",
	})

	_, data := doJSON(t, http.MethodGet, ts.URL+"/api/transactions", userToken, nil)
	var listed []transactionPayload
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].Type != "expense" {
		t.Fatalf("expected only own transactions, got %+v", listed)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	_, ts := newTestServer(t)

	var lastStatus int
	for i := 0; i < 61; i++ {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/logout", nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastStatus = resp.StatusCode
	}
	if lastStatus != http.StatusTooManyRequests {
		t.Errorf("expected 429 after limit, got %d", lastStatus)
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, data := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned %d: %s", path, resp.StatusCode, data)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/stats", "", nil)
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff header, got %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY frame options, got %q", got)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b", "ab"},
		{"line1\nline2", "line1\nline2"},
		{fmt.Sprintf("tab%cend", '\t'), "tab\tend"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
