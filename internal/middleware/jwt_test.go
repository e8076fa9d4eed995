package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/account-service/internal/config"
    "github.com/iliyamo/account-service/internal/model"
    "github.com/iliyamo/account-service/internal/repository"
    "github.com/iliyamo/account-service/internal/service"
    "github.com/iliyamo/account-service/internal/utils"
)

func gateFixture(t *testing.T) (*utils.TokenCodec, *repository.MemoryUserRepo, model.User) {
    t.Helper()
    codec := utils.NewTokenCodec(config.TokenConfig{
        AccessSecret: "access", AccessTTL: time.Minute,
        RefreshSecret: "refresh", RefreshTTL: time.Hour,
    })
    store := repository.NewMemoryUserRepo()
    u := model.User{ID: "u-1", Username: "alice", Email: "alice@x.com", FullName: "Alice", PasswordHash: "h"}
    require.NoError(t, store.Create(context.Background(), &u))
    return codec, store, u
}

func runGate(codec *utils.TokenCodec, store repository.UserStore, req *http.Request) (echo.Context, error) {
    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    h := JWTAuth(codec, store, nil)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    return c, h(c)
}

func TestJWTAuth_MissingToken(t *testing.T) {
    codec, store, _ := gateFixture(t)
    _, err := runGate(codec, store, httptest.NewRequest(http.MethodPost, "/", nil))
    assert.Equal(t, service.KindBadRequest, service.KindOf(err))
}

func TestJWTAuth_BearerHeader(t *testing.T) {
    codec, store, u := gateFixture(t)
    tok, err := codec.IssueAccessToken(u.Profile())
    require.NoError(t, err)

    req := httptest.NewRequest(http.MethodPost, "/", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    c, err := runGate(codec, store, req)
    require.NoError(t, err)

    p, ok := CurrentUser(c)
    require.True(t, ok)
    assert.Equal(t, "alice", p.Username)
    assert.Equal(t, "u-1", userID(c))
}

func TestJWTAuth_CookieWins(t *testing.T) {
    codec, store, u := gateFixture(t)
    tok, err := codec.IssueAccessToken(u.Profile())
    require.NoError(t, err)

    req := httptest.NewRequest(http.MethodPost, "/", nil)
    req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Token})
    req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
    _, err = runGate(codec, store, req)
    assert.NoError(t, err)
}

func TestJWTAuth_InvalidTokens(t *testing.T) {
    codec, store, u := gateFixture(t)

    refresh, err := codec.IssueRefreshToken(u.ID)
    require.NoError(t, err)

    stale := *codec
    stale.Now = func() time.Time { return time.Now().Add(-time.Hour) }
    expired, err := stale.IssueAccessToken(u.Profile())
    require.NoError(t, err)

    for name, raw := range map[string]string{
        "garbage": "not.a.token",
        "refresh": refresh.Raw,
        "expired": expired.Token,
    } {
        t.Run(name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodPost, "/", nil)
            req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
            _, err := runGate(codec, store, req)
            assert.Equal(t, service.KindUnauthorized, service.KindOf(err))
        })
    }
}

func TestJWTAuth_UnknownSubject(t *testing.T) {
    codec, store, _ := gateFixture(t)
    tok, err := codec.IssueAccessToken(model.Profile{ID: "ghost"})
    require.NoError(t, err)

    req := httptest.NewRequest(http.MethodPost, "/", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    c, err := runGate(codec, store, req)
    assert.Equal(t, service.KindUnauthorized, service.KindOf(err))
    assert.Equal(t, "guest", userID(c))
}
