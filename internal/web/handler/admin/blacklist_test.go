package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreauth "github.com/GoAltRepo-API/GoAltRepo-API/internal/auth"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/config"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/storage"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/token"
	"github.com/GoAltRepo-API/GoAltRepo-API/internal/web/handler"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	app       *fiber.App
	codec     *token.Codec
	blacklist *token.Blacklist
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := storage.NewRedisStorage(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	codec := token.NewCodec(testSecret, time.Hour, nil)
	blacklist := token.NewBlacklist(store, codec)

	cfg := &config.Config{
		Auth: config.Auth{AdminUser: "admin"},
	}

	app := fiber.New()

	svc := &Service{}
	require.NoError(t, svc.Init(app, cfg, &handler.Deps{
		Codec:     codec,
		Blacklist: blacklist,
	}))

	return &testEnv{app: app, codec: codec, blacklist: blacklist}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	raw, err := e.codec.Encode(&token.Claims{
		Nickname:    "admin",
		Fingerprint: coreauth.Fingerprint("0.0.0.0", "", ""),
	})
	require.NoError(t, err)

	return raw
}

func (e *testEnv) inspect(t *testing.T, bearer, subject string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, Path+"/blacklist/"+subject, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestBlacklistEntry(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	revoked := "some.revoked.token"
	require.NoError(t, env.blacklist.Add(context.Background(), revoked, time.Now().Add(time.Hour).Unix()))

	var body struct {
		Blacklisted bool              `json:"blacklisted"`
		Entry       map[string]string `json:"entry"`
	}

	resp := env.inspect(t, admin, revoked)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Blacklisted)
	assert.Contains(t, body.Entry, "expires_at")

	resp = env.inspect(t, admin, "clean.token")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Blacklisted)
}

func TestBlacklistEntryRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.codec.Encode(&token.Claims{
		Nickname:    "glen",
		Fingerprint: coreauth.Fingerprint("0.0.0.0", "", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, env.inspect(t, "", "whatever").StatusCode)
	assert.Equal(t, fiber.StatusForbidden, env.inspect(t, user, "whatever").StatusCode)
}
