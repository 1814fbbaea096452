package api

import (
	"net/http"
	"testing"

	"github.com/avelichko/couriertrack/internal/model"
)

func TestRequireAuth(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/users/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		body := decodeBody[errorBody](t, rec)
		if body.Error == "" {
			t.Error("expected a JSON error body")
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/users/me", "forged", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid token resolves identity", func(t *testing.T) {
		ts := newTestServer(t)
		var seen model.Identity
		ts.users.meFn = func(actor model.Identity) (model.User, error) {
			seen = actor
			return model.User{ID: actor.UserID}, nil
		}

		rec := ts.do(t, http.MethodGet, "/api/users/me", courierToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if seen != courierIdentity {
			t.Errorf("identity = %+v, want %+v", seen, courierIdentity)
		}
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/users", courierToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		ts := newTestServer(t)
		ts.users.listFn = func(model.Identity) ([]model.User, error) {
			return []model.User{{ID: 1}}, nil
		}

		rec := ts.do(t, http.MethodGet, "/api/users", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestPublicRoutes(t *testing.T) {
	t.Run("tracking needs no token", func(t *testing.T) {
		ts := newTestServer(t)
		ts.packages.trackFn = func(number string) (model.Package, error) {
			return model.Package{TrackingNumber: number, Status: model.StatusInTransit}, nil
		}

		rec := ts.do(t, http.MethodGet, "/api/track/PKG-ABCD1234", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("websocket upgrade is routed", func(t *testing.T) {
		ts := newTestServer(t)

		ts.do(t, http.MethodGet, "/ws", "", nil)
		if ts.broadcaster.wsHits != 1 {
			t.Fatalf("ws hits = %d, want 1", ts.broadcaster.wsHits)
		}
	})

	t.Run("metrics endpoint serves text exposition", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestRecoverPanic(t *testing.T) {
	ts := newTestServer(t)
	ts.users.meFn = func(model.Identity) (model.User, error) {
		panic("handler exploded")
	}

	rec := ts.do(t, http.MethodGet, "/api/users/me", senderToken, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error != "internal error" {
		t.Errorf("error = %q, want %q", body.Error, "internal error")
	}
}
