package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, cookies []*http.Cookie) (bool, error)

func (f verifierFunc) Verify(ctx context.Context, cookies []*http.Cookie) (bool, error) {
	return f(ctx, cookies)
}

func TestAuth_RejectsExpiredToken(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Verifier = verifierFunc(func(context.Context, []*http.Cookie) (bool, error) { return false, nil })
	})

	w := s.do(t, "/api/v1/films/f1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Token expired"}`, w.Body.String())

	gets, _ := s.backend.Calls()
	assert.Zero(t, gets)
}

func TestAuth_ForwardsCookies(t *testing.T) {
	var seen []string
	s := newTestServer(t, func(d *Deps) {
		d.Verifier = verifierFunc(func(_ context.Context, cookies []*http.Cookie) (bool, error) {
			for _, ck := range cookies {
				seen = append(seen, ck.Name+"="+ck.Value)
			}
			return true, nil
		})
	})

	w := s.do(t, "/api/v1/films/f1",
		&http.Cookie{Name: "access_token_cookie", Value: "a"},
		&http.Cookie{Name: "refresh_token_cookie", Value: "r"},
		&http.Cookie{Name: "other", Value: "x"},
	)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"access_token_cookie=a", "refresh_token_cookie=r"}, seen)
}

func TestAuth_VerifierFailure(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Verifier = verifierFunc(func(context.Context, []*http.Cookie) (bool, error) {
			return false, errors.New("dial tcp: refused")
		})
	})

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, "/api/v1/films/f1").Code)
}

func TestAuth_HealthIsPublic(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Verifier = verifierFunc(func(context.Context, []*http.Cookie) (bool, error) { return false, nil })
	})

	assert.Equal(t, http.StatusOK, s.do(t, "/api/v1/healthz").Code)
}

func TestRemoteVerifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"true", http.StatusOK, `true`, true, false},
		{"object", http.StatusOK, `{"user":"1"}`, true, false},
		{"false", http.StatusOK, `false`, false, false},
		{"empty object", http.StatusOK, `{}`, false, false},
		{"null", http.StatusOK, `null`, false, false},
		{"not json", http.StatusOK, `nope`, false, false},
		{"unauthorized", http.StatusUnauthorized, `false`, false, false},
		{"server error", http.StatusBadGateway, ``, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ck, err := r.Cookie("access_token_cookie")
				if assert.NoError(t, err) {
					assert.Equal(t, "token", ck.Value)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v := NewRemoteVerifier(srv.URL, nil)
			ok, err := v.Verify(context.Background(), []*http.Cookie{{Name: "access_token_cookie", Value: "token"}})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRemoteVerifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteVerifier(url, nil).Verify(context.Background(), nil)
	assert.Error(t, err)
}
