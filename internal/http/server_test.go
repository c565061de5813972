package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"piggybank/internal/auth"
	"piggybank/internal/services"
	"piggybank/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "piggybank.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	for _, u := range []struct{ name, password string }{
		{"maria", "s3cret"},
		{"john", "hunter2"},
	} {
		if _, err := repo.CreateUser(context.Background(), u.name, u.password, ""); err != nil {
			t.Fatalf("create user %s: %v", u.name, err)
		}
	}

	sessions := auth.NewManager(repo.Sessions(), repo, "test-secret", time.Hour)
	svc := services.NewPiggyService(repo, nil)
	return NewServer(":0", svc, auth.NewAuthenticator(repo), sessions)
}

func doJSON(t *testing.T, s *Server, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, username, password string) []*http.Cookie {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/login",
		`{"username":"`+username+`","password":"`+password+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login must set a session cookie")
	}
	return cookies
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestLoginWrongPasswordIsGenericAndSetsNoCookie(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/login",
		`{"username":"maria","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp statusResponse
	decodeBody(t, rec, &resp)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "Incorrect username or password" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("failed login must not set a session cookie")
	}

	// Unknown username yields the identical response.
	rec2 := doJSON(t, s, http.MethodPost, "/login",
		`{"username":"nobody","password":"wrong"}`, nil)
	if rec2.Code != rec.Code || rec2.Body.String() != rec.Body.String() {
		t.Error("unknown username must be indistinguishable from wrong password")
	}
}

func TestUserInfoDegradesForAnonymous(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/user-info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous probe, got %d", rec.Code)
	}
	var resp userInfoResponse
	decodeBody(t, rec, &resp)
	if resp.Username != nil {
		t.Errorf("expected null username, got %q", *resp.Username)
	}

	cookies := login(t, s, "maria", "s3cret")
	rec = doJSON(t, s, http.MethodGet, "/user-info", "", cookies)
	decodeBody(t, rec, &resp)
	if resp.Username == nil || *resp.Username != "maria" {
		t.Errorf("expected username maria, got %v", resp.Username)
	}
}

func TestCRUDRequiresSession(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/piggies"},
		{http.MethodPost, "/add-piggy"},
		{http.MethodPut, "/edit-piggy/1"},
		{http.MethodDelete, "/delete-piggy/1"},
	} {
		rec := doJSON(t, s, tc.method, tc.target, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.target, rec.Code)
		}
	}
}

func TestCreateAndListRoundTripFormatting(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/add-piggy",
		`{"title":"Vacation","amount":"500.5","goal":"1000","need":"High"}`, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created piggyResponse
	decodeBody(t, rec, &created)
	if !created.Success || created.Piggy.ID == 0 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/piggies", "", cookies)
	var piggies []piggyView
	decodeBody(t, rec, &piggies)
	if len(piggies) != 1 {
		t.Fatalf("expected 1 piggy, got %d", len(piggies))
	}
	if piggies[0].Amount != "500.50" || piggies[0].Goal != "1000.00" {
		t.Errorf("expected two-decimal formatting, got amount %q goal %q",
			piggies[0].Amount, piggies[0].Goal)
	}
}

func TestCreateValidationFailuresReturn400(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	cases := []struct {
		name string
		body string
	}{
		{"goal below amount", `{"title":"Vacation","amount":"100","goal":"50","need":"Low"}`},
		{"above ceiling", `{"title":"Car","amount":"50000000","goal":"60000000","need":"High"}`},
		{"empty title", `{"title":"  ","amount":"10","goal":"20","need":"Low"}`},
		{"bad need", `{"title":"Vacation","amount":"10","goal":"20","need":"Urgent"}`},
		{"non-numeric amount", `{"title":"Vacation","amount":"ten","goal":"20","need":"Low"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/add-piggy", tc.body, cookies)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
			var resp statusResponse
			decodeBody(t, rec, &resp)
			if resp.Success || resp.Message == "" {
				t.Errorf("expected failure with reason, got %+v", resp)
			}
		})
	}

	rec := doJSON(t, s, http.MethodGet, "/piggies", "", cookies)
	var piggies []piggyView
	decodeBody(t, rec, &piggies)
	if len(piggies) != 0 {
		t.Error("rejected inputs must not be stored")
	}
}

func TestUpdateAppliesFullValidation(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	rec := doJSON(t, s, http.MethodPost, "/add-piggy",
		`{"title":"Vacation","amount":"100","goal":"2000","need":"High"}`, cookies)
	var created piggyResponse
	decodeBody(t, rec, &created)

	rec = doJSON(t, s, http.MethodPut, "/edit-piggy/1",
		`{"title":"Vacation","amount":"100","goal":"oops","need":"High"}`, cookies)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad goal on update, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/edit-piggy/1",
		`{"title":"Honeymoon","amount":"150","goal":"3000","need":"Very High"}`, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated piggyResponse
	decodeBody(t, rec, &updated)
	if updated.Piggy.Title != "Honeymoon" || updated.Piggy.Goal != "3000.00" {
		t.Errorf("unexpected updated piggy: %+v", updated.Piggy)
	}
}

func TestCrossOwnerAccessIsUniform403(t *testing.T) {
	s := newTestServer(t)
	mariaCookies := login(t, s, "maria", "s3cret")
	johnCookies := login(t, s, "john", "hunter2")

	rec := doJSON(t, s, http.MethodPost, "/add-piggy",
		`{"title":"Vacation","amount":"100","goal":"2000","need":"High"}`, mariaCookies)
	var created piggyResponse
	decodeBody(t, rec, &created)

	// John attacks maria's record and a nonexistent one; both answers match.
	foreign := doJSON(t, s, http.MethodDelete, "/delete-piggy/1", "", johnCookies)
	missing := doJSON(t, s, http.MethodDelete, "/delete-piggy/999", "", johnCookies)
	if foreign.Code != http.StatusForbidden || missing.Code != http.StatusForbidden {
		t.Fatalf("expected 403/403, got %d/%d", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		t.Error("foreign and missing ids must be indistinguishable")
	}

	update := doJSON(t, s, http.MethodPut, "/edit-piggy/1",
		`{"title":"Hijacked","amount":"1","goal":"2","need":"Low"}`, johnCookies)
	if update.Code != http.StatusForbidden {
		t.Fatalf("foreign update: expected 403, got %d", update.Code)
	}

	// Maria's record survives untouched.
	rec = doJSON(t, s, http.MethodGet, "/piggies", "", mariaCookies)
	var piggies []piggyView
	decodeBody(t, rec, &piggies)
	if len(piggies) != 1 || piggies[0].Title != "Vacation" {
		t.Fatalf("record must survive foreign writes, got %+v", piggies)
	}
}

func TestDeleteThenDeleteAgain(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	doJSON(t, s, http.MethodPost, "/add-piggy",
		`{"title":"Vacation","amount":"100","goal":"2000","need":"High"}`, cookies)

	first := doJSON(t, s, http.MethodDelete, "/delete-piggy/1", "", cookies)
	if first.Code != http.StatusOK {
		t.Fatalf("first delete: status %d", first.Code)
	}
	second := doJSON(t, s, http.MethodDelete, "/delete-piggy/1", "", cookies)
	if second.Code != http.StatusForbidden {
		t.Fatalf("second delete: expected 403, got %d", second.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	rec := doJSON(t, s, http.MethodGet, "/logout", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/piggies", "", cookies)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}

	// Logout again with the dead cookie still acks.
	rec = doJSON(t, s, http.MethodGet, "/logout", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat logout: status %d", rec.Code)
	}
}

func TestFormEncodedBodiesAreAccepted(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/add-piggy",
		strings.NewReader("title=Vacation&amount=500.50&goal=2000&need=Very+High"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("form create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created piggyResponse
	decodeBody(t, rec, &created)
	if created.Piggy.Need != "Very High" {
		t.Errorf("expected need 'Very High', got %q", created.Piggy.Need)
	}
}

func TestBearerTokenFallback(t *testing.T) {
	s := newTestServer(t)
	cookies := login(t, s, "maria", "s3cret")

	var token string
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("no session cookie issued")
	}

	req := httptest.NewRequest(http.MethodGet, "/piggies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer auth: status %d", rec.Code)
	}
}
