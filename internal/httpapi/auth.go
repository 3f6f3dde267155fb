package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookies forwarded to the token verifier.
var authCookies = []string{"access_token_cookie", "refresh_token_cookie"}

// TokenVerifier decides whether the session cookies of a request are valid.
type TokenVerifier interface {
	Verify(ctx context.Context, cookies []*http.Cookie) (bool, error)
}

// RemoteVerifier asks an external auth service. The service answers with a
// JSON value whose truthiness is the verdict.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

// NewRemoteVerifier creates a verifier calling url. A nil client uses a client
// with a 5 second timeout.
func NewRemoteVerifier(url string, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RemoteVerifier{url: url, client: client}
}

func (v *RemoteVerifier) Verify(ctx context.Context, cookies []*http.Cookie) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return false, err
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("verify token: status %d", resp.StatusCode)
	}

	var verdict any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&verdict); err != nil {
		// a non-JSON answer is not an approval
		return false, nil
	}
	return truthy(verdict), nil
}

// Auth rejects requests whose cookies the verifier does not accept.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cookies []*http.Cookie
		for _, name := range authCookies {
			if ck, err := c.Request.Cookie(name); err == nil {
				cookies = append(cookies, ck)
			}
		}

		ok, err := verifier.Verify(c.Request.Context(), cookies)
		if err != nil {
			loggerFrom(c).Error("token verification failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Detail: "auth service unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			return
		}
		c.Next()
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
