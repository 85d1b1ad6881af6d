package qu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-search-api/internal/config"
	apperrors "menu-search-api/pkg/errors"
)

func testConfig(baseURL string) *config.QuConfig {
	return &config.QuConfig{
		BaseURL:      baseURL,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Integration:  "integration-1",
		LocationID:   "loc-1",
		Timeout:      5 * time.Second,
	}
}

func TestToken(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/authentication/oauth2/access-token", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotForm = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			gotForm[key] = values[0]
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	token, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	assert.Equal(t, "client_credentials", gotForm["grant_type"])
	assert.Equal(t, "client-1", gotForm["client_id"])
	assert.Equal(t, "secret-1", gotForm["client_secret"])
	assert.Equal(t, "menu:*", gotForm["scope"])

	// expires_in 兜底
	assert.WithinDuration(t, time.Now().Add(time.Hour), client.TokenExpiry(), time.Minute)
}

func TestTokenCached(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Token(context.Background())
	require.NoError(t, err)
	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAuthFailed, apperrors.AsAppError(err).Code)
}

func TestTokenMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAuthFailed, apperrors.AsAppError(err).Code)
}

func TestTokenExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	got := tokenExpiry(tokenResponse{AccessToken: signed, ExpiresIn: 60})
	assert.True(t, got.Equal(exp), "want %v got %v", exp, got)
}

func TestTokenExpiryFallback(t *testing.T) {
	got := tokenExpiry(tokenResponse{AccessToken: "opaque-token", ExpiresIn: 120})
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), got, time.Second)

	assert.True(t, tokenExpiry(tokenResponse{AccessToken: "opaque-token"}).IsZero())
}

func catalogServer(t *testing.T, menusBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authentication/oauth2/access-token":
			_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
		case "/sales/menus":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			assert.Equal(t, "integration-1", r.Header.Get("X-Integration"))
			assert.Equal(t, "loc-1", r.URL.Query().Get("LocationId"))
			assert.Equal(t, "1", r.URL.Query().Get("FulfillmentMethod"))
			_, _ = w.Write([]byte(menusBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestMenus(t *testing.T) {
	body := `{
		"value": {
			"snapshotId": "snap-9",
			"categories": [{"title":"Burgers","itemPathKey":"1","children":[{"title":"Classic","itemPathKey":"1-10"}]}]
		},
		"succeed": true
	}`
	server := catalogServer(t, body)
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	tree, err := client.Menus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-9", tree.SnapshotID)
	require.Len(t, tree.Categories, 1)
	assert.Equal(t, "1-10", tree.Categories[0].Children[0].ItemPathKey)
}

func TestMenusUpstreamErrors(t *testing.T) {
	body := `{"succeed": false, "errors": [{"code": 500, "key": "menus", "message": "location closed"}]}`
	server := catalogServer(t, body)
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Menus(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamError, apperrors.AsAppError(err).Code)
}

func TestMenusMissingValue(t *testing.T) {
	server := catalogServer(t, `{"succeed": true}`)
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Menus(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeParseFailed, apperrors.AsAppError(err).Code)
}

func TestDescendants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authentication/oauth2/access-token":
			_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
		case "/sales/menus/snap-9/items/1-10/descendants":
			_, _ = w.Write([]byte(`{"value": [{"title":"Toppings","itemPathKey":"1-10-100"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	descendants, err := client.Descendants(context.Background(), "snap-9", "1-10")
	require.NoError(t, err)
	require.Len(t, descendants.Value, 1)
	assert.Equal(t, "1-10-100", descendants.Value[0].ItemPathKey)
}

func TestCatalogAuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authentication/oauth2/access-token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Menus(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAuthFailed, apperrors.AsAppError(err).Code)
}

func TestCatalogServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authentication/oauth2/access-token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Menus(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamError, apperrors.AsAppError(err).Code)
}
