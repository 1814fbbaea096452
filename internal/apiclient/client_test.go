package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avelichko/couriertrack/internal/model"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New("https://courier.example.com")

		if c.baseURL != "https://courier.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://courier.example.com")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, time.Second)
		}
		if c.Token() != "" {
			t.Errorf("token = %q, want empty", c.Token())
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := New("https://courier.example.com",
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
			WithLogger(logger),
			WithToken("preissued"),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 5)
		}
		if c.retryBackoff != 2*time.Second {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 2*time.Second)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if c.Token() != "preissued" {
			t.Errorf("token = %q, want %q", c.Token(), "preissued")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := New("https://courier.example.com", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{
			StatusCode: 404,
			Message:    "not found",
			Body:       []byte(`{"error": "not found"}`),
		}
		expected := "couriertrack api error 404: not found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
			{409, false},
			{422, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})

	t.Run("server error body becomes the message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error": "illegal status transition"}`))
		}))
		defer server.Close()

		c := New(server.URL)
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T: %v", err, err)
		}
		if apiErr.Message != "illegal status transition" {
			t.Errorf("Message = %q, want the server's error text", apiErr.Message)
		}
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("sends bearer token when set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q", r.Header.Get("Accept"))
			}
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("Authorization header = %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no Authorization header before login", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("Authorization header should be empty, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := New(server.URL)
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("JSON body carries content type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if payload["email"] != "anna@example.com" {
				t.Errorf("body = %v", payload)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := New(server.URL)
		body := map[string]string{"email": "anna@example.com"}
		if _, err := c.doRequest(context.Background(), http.MethodPost, "/test", nil, body); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := New(server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, http.MethodGet, "/test", nil, nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "context canceled") {
			t.Errorf("error should contain 'context canceled', got %v", err)
		}
	})
}

func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := New(server.URL, WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx (except 429)", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
		}))
		defer server.Close()

		c := New(server.URL, WithRetries(3, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := New(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("stores the access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/auth/login" {
				t.Errorf("path = %q", r.URL.Path)
			}
			json.NewEncoder(w).Encode(LoginResult{
				User:   model.User{ID: 7, Email: "anna@example.com", Role: model.RoleCourier},
				Tokens: model.TokenPair{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"},
			})
		}))
		defer server.Close()

		c := New(server.URL)
		result, err := c.Login(context.Background(), "anna@example.com", "hunter22")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.User.ID != 7 {
			t.Errorf("user id = %d, want 7", result.User.ID)
		}
		if c.Token() != "acc" {
			t.Errorf("token = %q, want %q", c.Token(), "acc")
		}
	})

	t.Run("bad credentials leave the token unset", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "invalid credentials"}`))
		}))
		defer server.Close()

		c := New(server.URL)
		_, err := c.Login(context.Background(), "anna@example.com", "wrong")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
			t.Fatalf("expected 401 *APIError, got %v", err)
		}
		if c.Token() != "" {
			t.Errorf("token = %q, want empty", c.Token())
		}
	})
}

func TestPackageCalls(t *testing.T) {
	t.Run("track is public", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/track/PKG-AAAA1111" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "" {
				t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(TrackInfo{TrackingNumber: "PKG-AAAA1111", Status: model.StatusInTransit})
		}))
		defer server.Close()

		c := New(server.URL)
		info, err := c.Track(context.Background(), "PKG-AAAA1111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Status != model.StatusInTransit {
			t.Errorf("status = %q", info.Status)
		}
	})

	t.Run("assign for self omits the courier id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if _, present := body["courier_id"]; present {
				t.Errorf("courier_id should be omitted, body = %v", body)
			}
			json.NewEncoder(w).Encode(model.Package{ID: 41, Status: model.StatusAssigned})
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		pkg, err := c.AssignPackage(context.Background(), 41, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pkg.Status != model.StatusAssigned {
			t.Errorf("status = %q", pkg.Status)
		}
	})

	t.Run("delivery for package", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/packages/41/delivery" {
				t.Errorf("path = %q", r.URL.Path)
			}
			json.NewEncoder(w).Encode(model.Delivery{ID: 7, PackageID: 41, CourierID: 2})
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		d, err := c.DeliveryForPackage(context.Background(), 41)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ID != 7 || d.PackageID != 41 {
			t.Errorf("delivery = %+v", d)
		}
	})
}

func TestDeliveryCalls(t *testing.T) {
	t.Run("update location posts coordinates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/deliveries/7/location" {
				t.Errorf("path = %q", r.URL.Path)
			}
			var body struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body.Lat != 48.85 || body.Lng != 2.35 {
				t.Errorf("coords = %v/%v", body.Lat, body.Lng)
			}
			json.NewEncoder(w).Encode(model.Delivery{ID: 7, CurrentLat: &body.Lat, CurrentLng: &body.Lng})
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		d, err := c.UpdateLocation(context.Background(), 7, 48.85, 2.35)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.CurrentLat == nil || *d.CurrentLat != 48.85 {
			t.Errorf("lat = %v", d.CurrentLat)
		}
	})
}

func TestNotificationCalls(t *testing.T) {
	t.Run("unread flag becomes a query parameter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("unread") != "true" {
				t.Errorf("unread = %q, want %q", r.URL.Query().Get("unread"), "true")
			}
			json.NewEncoder(w).Encode(NotificationsPage{
				Notifications: []model.Notification{{ID: 1}},
				Unread:        1,
			})
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		page, err := c.Notifications(context.Background(), true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Unread != 1 || len(page.Notifications) != 1 {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("mark all read returns the count", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]int64{"marked": 4})
		}))
		defer server.Close()

		c := New(server.URL, WithToken("tok"))
		n, err := c.MarkAllNotificationsRead(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 4 {
			t.Errorf("marked = %d, want 4", n)
		}
	})
}
