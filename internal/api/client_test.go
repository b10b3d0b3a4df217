package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := session.NewStore()
	client := NewClient(server.URL, 2*time.Second, tokens)
	return client, tokens, server
}

func TestLogin(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("username") != "op" || r.PostForm.Get("password") != "secret" {
			t.Errorf("Unexpected form values: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
	}))

	token, err := client.Login(context.Background(), "op", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Expected token tok-123, got %q", token)
	}
}

func TestLoginRejected(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))

	_, err := client.Login(context.Background(), "op", "wrong")
	if !errors.Is(err, errs.ErrAuthRejected) {
		t.Fatalf("Expected ErrAuthRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect username or password") {
		t.Errorf("Expected server detail in error, got %q", err.Error())
	}
}

func TestRegister(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"email":"op@example.com","is_active":true,"is_superuser":false}`))
	}))

	user, err := client.Register(context.Background(), UserCreate{
		Email:    "op@example.com",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID != 7 || user.Email != "op@example.com" || !user.IsActive {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	}))

	_, err := client.Register(context.Background(), UserCreate{Email: "op@example.com", Password: "longenough"})
	serverErr, ok := errs.AsServerError(err)
	if !ok {
		t.Fatalf("Expected ServerError, got %v", err)
	}
	if serverErr.Status != http.StatusBadRequest || serverErr.Detail != "Email already registered" {
		t.Errorf("Unexpected server error: %+v", serverErr)
	}
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	requests := 0
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))

	_, err := client.ListBotConfigs(context.Background())
	if !errors.Is(err, errs.ErrAuthRequired) {
		t.Fatalf("Expected ErrAuthRequired, got %v", err)
	}
	if requests != 0 {
		t.Errorf("Expected no network call without a credential, saw %d", requests)
	}
}

func TestBearerHeader(t *testing.T) {
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Expected bearer header, got %q", got)
		}
		w.Write([]byte(`[]`))
	}))
	tokens.Set("tok-123")

	if _, err := client.ListExchangeKeys(context.Background()); err != nil {
		t.Fatalf("ListExchangeKeys failed: %v", err)
	}
}

func TestServerRejectedDetailForwarded(t *testing.T) {
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"budget must be non-negative"}`))
	}))
	tokens.Set("tok")

	_, err := client.AddBotConfig(context.Background(), BotConfigCreate{Mode: ModeSandbox, Coins: "BTC"})
	se, ok := errs.AsServerError(err)
	if !ok {
		t.Fatalf("Expected ServerError, got %v", err)
	}
	if se.Detail != "budget must be non-negative" {
		t.Errorf("Expected detail forwarded verbatim, got %q", se.Detail)
	}
	if se.Status != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", se.Status)
	}
}

func TestMe(t *testing.T) {
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" || r.Method != http.MethodGet {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":3,"email":"op@example.com","is_active":true,"is_superuser":false}`))
	}))
	tokens.Set("tok")

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != 3 || user.Email != "op@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestSetExchangeKeyEnabled(t *testing.T) {
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange-keys/4/enable" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("enabled"); got != "false" {
			t.Errorf("Expected enabled=false, got %q", got)
		}
		w.Write([]byte(`{"id":4,"user_id":1,"exchange":"kraken","is_enabled":false}`))
	}))
	tokens.Set("tok")

	key, err := client.SetExchangeKeyEnabled(context.Background(), 4, false)
	if err != nil {
		t.Fatalf("SetExchangeKeyEnabled failed: %v", err)
	}
	if key.ID != 4 || key.IsEnabled {
		t.Errorf("Unexpected key: %+v", key)
	}
}

func TestUpdateAndDeleteBotConfig(t *testing.T) {
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/bot-configs/9":
			w.Write([]byte(`{"id":9,"user_id":1,"mode":"live","coins":"BTC","budget":500}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/bot-configs/9":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	tokens.Set("tok")

	cfg, err := client.UpdateBotConfig(context.Background(), 9, BotConfigCreate{Mode: ModeLive, Coins: "BTC", Budget: 500})
	if err != nil {
		t.Fatalf("UpdateBotConfig failed: %v", err)
	}
	if cfg.ID != 9 || cfg.Mode != ModeLive {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	if err := client.DeleteBotConfig(context.Background(), 9); err != nil {
		t.Fatalf("DeleteBotConfig failed: %v", err)
	}
}

func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	tokens := session.NewStore()
	tokens.Set("tok")
	client := NewClient(server.URL, 50*time.Millisecond, tokens)

	_, err := client.ListBotConfigs(context.Background())
	if !errors.Is(err, errs.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws?token=abc"},
		{"https://bots.example.com", "wss://bots.example.com/ws?token=abc"},
	}

	for _, tc := range cases {
		client := NewClient(tc.base, time.Second, session.NewStore())
		got, err := client.StreamURL("abc")
		if err != nil {
			t.Fatalf("StreamURL(%q) failed: %v", tc.base, err)
		}
		if got != tc.want {
			t.Errorf("StreamURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}
