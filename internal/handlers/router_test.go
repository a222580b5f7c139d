package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"amm-market/internal/auth"
	"amm-market/internal/database"
	"amm-market/internal/services"
)

type apiFixture struct {
	router *gin.Engine
	tokens map[string]string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.InitJWT("test-secret")

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db, zap.NewNop()))

	reg := services.NewRegistryService(db, services.RegistryConfig{
		Principal:       "registry",
		FeesAddress:     "fees",
		SettlementDenom: "usdc",
	}, zap.NewNop())
	engine := services.NewMarketEngine(db, reg, zap.NewNop())
	reg.Bind(engine)
	require.NoError(t, reg.EnsureAdmins(context.Background(), []string{"admin"}))

	f := &apiFixture{
		router: NewRouter(RouterConfig{Registry: reg, Engine: engine, Log: zap.NewNop()}),
		tokens: map[string]string{},
	}
	for _, w := range []string{"admin", "alice"} {
		token, err := auth.GenerateToken(w)
		require.NoError(t, err)
		f.tokens[w] = token
	}
	return f
}

// do sends body as JSON on behalf of as ("" for anonymous) and decodes the reply
func (f *apiFixture) do(t *testing.T, method, path, as string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[as])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func data(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidParameter, http.StatusBadRequest},
		{services.ErrUnauthorized, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrPrecondition, http.StatusConflict},
		{services.ErrIntegrity, http.StatusConflict},
		{services.ErrEconomicLimit, http.StatusUnprocessableEntity},
		{services.ErrExternalCall, http.StatusBadGateway},
		{&services.MarketError{Kind: services.ErrEconomicLimit, Reason: "x"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

// challenge fetches a login nonce for addr
func (f *apiFixture) challenge(t *testing.T, addr string) (nonce, message string) {
	t.Helper()
	code, resp := f.do(t, http.MethodGet, "/auth/nonce?wallet_address="+addr, "", nil)
	require.Equal(t, http.StatusOK, code, resp)
	return resp["nonce"].(string), resp["message"].(string)
}

func TestWalletLogin(t *testing.T) {
	f := newAPIFixture(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := base58.Encode(pub)

	nonce, msg := f.challenge(t, addr)
	assert.Equal(t, auth.LoginMessage(nonce), msg)
	sig := base58.Encode(ed25519.Sign(priv, []byte(msg)))
	code, resp := f.do(t, http.MethodPost, "/auth/wallet", "", gin.H{"wallet_address": addr, "nonce": nonce, "signature": sig})
	require.Equal(t, http.StatusOK, code, resp)
	claims, err := auth.ValidateToken(resp["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, addr, claims.WalletAddress)

	nonce, _ = f.challenge(t, addr)
	bad := base58.Encode(ed25519.Sign(priv, []byte("something else")))
	code, _ = f.do(t, http.MethodPost, "/auth/wallet", "", gin.H{"wallet_address": addr, "nonce": nonce, "signature": bad})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodPost, "/auth/wallet", "", gin.H{"wallet_address": "0OIl", "nonce": nonce, "signature": sig})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/auth/nonce?wallet_address=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWalletLoginRejectsReplay(t *testing.T) {
	f := newAPIFixture(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := base58.Encode(pub)

	nonce, msg := f.challenge(t, addr)
	login := gin.H{"wallet_address": addr, "nonce": nonce, "signature": base58.Encode(ed25519.Sign(priv, []byte(msg)))}
	code, resp := f.do(t, http.MethodPost, "/auth/wallet", "", login)
	require.Equal(t, http.StatusOK, code, resp)

	// the captured request cannot be sent again
	code, resp = f.do(t, http.MethodPost, "/auth/wallet", "", login)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "nonce expired or already used", resp["error"])

	// a nonce the server never issued is refused even with a valid signature
	forged := "00000000-0000-0000-0000-000000000000"
	code, _ = f.do(t, http.MethodPost, "/auth/wallet", "", gin.H{
		"wallet_address": addr,
		"nonce":          forged,
		"signature":      base58.Encode(ed25519.Sign(priv, []byte(auth.LoginMessage(forged)))),
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	// a nonce issued to another wallet does not transfer
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	theirs, theirMsg := f.challenge(t, base58.Encode(otherPub))
	code, _ = f.do(t, http.MethodPost, "/auth/wallet", "", gin.H{
		"wallet_address": addr,
		"nonce":          theirs,
		"signature":      base58.Encode(ed25519.Sign(priv, []byte(theirMsg))),
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMarketLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	create := gin.H{"title": "Will it rain?", "end_date": time.Now().Add(time.Hour).Unix()}

	code, _ := f.do(t, http.MethodPost, "/api/markets", "", create)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, resp := f.do(t, http.MethodPost, "/api/markets", "alice", create)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, services.ErrUnauthorized.Error(), resp["kind"])

	code, resp = f.do(t, http.MethodPost, "/api/markets", "admin", create)
	require.Equal(t, http.StatusCreated, code, resp)
	id := data(t, resp)["id"].(string)
	base := "/api/markets/" + id

	// quoting an uninitialized market is a precondition failure
	code, _ = f.do(t, http.MethodGet, base+"/quote?outcome=1&side=1&amount=15000000", "", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, resp = f.do(t, http.MethodPost, base+"/liquidity/init", "admin", gin.H{"yes_price": "50000000", "liquidity": "1000000000"})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = f.do(t, http.MethodGet, base+"/quote?outcome=1&side=1&amount=15000000", "", nil)
	require.Equal(t, http.StatusOK, code, resp)
	q := data(t, resp)
	assert.Equal(t, "50738916", q["price"])
	assert.Equal(t, "300", q["price_impact"])
	assert.Equal(t, "0.50738916", q["display_price"])

	code, resp = f.do(t, http.MethodPost, base+"/orders", "alice", gin.H{"outcome": 1, "side": 1, "amount": "15000000"})
	require.Equal(t, http.StatusOK, code, resp)

	// 30 units would move the Yes reserve by more than 5%
	code, resp = f.do(t, http.MethodPost, base+"/orders", "alice", gin.H{"outcome": 1, "side": 1, "amount": "30000000"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, resp)

	code, resp = f.do(t, http.MethodGet, base+"/orders", "", nil)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Len(t, data(t, resp)["orders"], 1)

	code, _ = f.do(t, http.MethodGet, base+"/orders?page=2", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = f.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "15000000", data(t, resp)["volume"])

	code, resp = f.do(t, http.MethodGet, "/api/me/incentives", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, services.IncentivePointsPerOrder, data(t, resp)["points"])

	code, resp = f.do(t, http.MethodGet, "/api/markets?kind=1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data(t, resp)["markets"], 1)

	code, _ = f.do(t, http.MethodGet, "/api/markets/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminRoutes(t *testing.T) {
	f := newAPIFixture(t)

	code, _ := f.do(t, http.MethodPost, "/api/admin/admins", "alice", gin.H{"address": "alice"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := f.do(t, http.MethodPost, "/api/admin/admins", "admin", gin.H{"address": "alice"})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = f.do(t, http.MethodGet, "/auth/me", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, data(t, resp)["is_admin"])

	code, _ = f.do(t, http.MethodDelete, "/api/admin/admins", "alice", gin.H{"address": "alice"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodPost, "/api/admin/admins", "alice", gin.H{"address": "bob"})
	assert.Equal(t, http.StatusForbidden, code)
}
