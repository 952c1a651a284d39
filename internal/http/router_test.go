package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/treasury/internal/app"
	"github.com/MrJamesThe3rd/treasury/internal/auth"
	"github.com/MrJamesThe3rd/treasury/internal/discord"
	httpapi "github.com/MrJamesThe3rd/treasury/internal/http"
	"github.com/MrJamesThe3rd/treasury/internal/http/authn"
	httpbank "github.com/MrJamesThe3rd/treasury/internal/http/bank"
	httpcompany "github.com/MrJamesThe3rd/treasury/internal/http/company"
	"github.com/MrJamesThe3rd/treasury/internal/http/login"
	httptransaction "github.com/MrJamesThe3rd/treasury/internal/http/transaction"
	httpuser "github.com/MrJamesThe3rd/treasury/internal/http/user"
	"github.com/MrJamesThe3rd/treasury/internal/memstore"
)

type fakeDiscord struct{}

func (fakeDiscord) AuthCodeURL(state string) (string, error) {
	return "https://discord.test/authorize?state=" + url.QueryEscape(state), nil
}

func (fakeDiscord) Exchange(_ context.Context, code string) (*discord.Account, error) {
	if code != "ok" {
		return nil, errors.New("invalid_grant")
	}

	return &discord.Account{ID: "4242", Username: "nelly"}, nil
}

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()

	repos := app.Memory(memstore.New())
	svc := app.NewServices(repos)
	tokens := auth.NewTokens("test-secret", time.Hour)

	_, _, err := svc.Users.Bootstrap(context.Background(), "root", "changethis")
	require.NoError(t, err)

	mw := authn.New(tokens, repos.Users)

	router := httpapi.New(httpapi.Handlers{
		Authn:        mw,
		Login:        login.NewHandler(svc.Users, tokens, mw),
		Users:        httpuser.NewHandler(svc.Users, tokens, fakeDiscord{}, mw),
		Companies:    httpcompany.NewHandler(svc.Companies),
		Banks:        httpbank.NewHandler(svc.Banks),
		Transactions: httptransaction.NewHandler(svc.Transactions, svc.Parser),
	}, nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &api{t: t, server: srv}
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) errorKind(t *testing.T) string {
	t.Helper()

	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	r.decode(t, &body)
	assert.NotEmpty(t, body.Error.Message)

	return body.Error.Kind
}

func (a *api) do(method, path, token string, body io.Reader, contentType string) response {
	a.t.Helper()

	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	return response{status: resp.StatusCode, body: raw}
}

func (a *api) json(method, path, token string, payload any) response {
	a.t.Helper()

	if payload == nil {
		return a.do(method, path, token, nil, "")
	}

	raw, err := json.Marshal(payload)
	require.NoError(a.t, err)

	return a.do(method, path, token, bytes.NewReader(raw), "application/json")
}

func (a *api) login(username, password string) string {
	a.t.Helper()

	form := url.Values{"username": {username}, "password": {password}}
	resp := a.do(http.MethodPost, "/api/v1/login/access-token", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(a.t, http.StatusOK, resp.status, string(resp.body))

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	resp.decode(a.t, &tok)
	assert.Equal(a.t, "bearer", tok.TokenType)

	return tok.AccessToken
}

type userBody struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Rank      *string `json:"rank"`
	CompanyID *string `json:"company_id"`
	DiscordID *string `json:"discord_id"`
}

// signup has root create an active user and returns its id and token.
func (a *api) signup(root, username string) (string, string) {
	a.t.Helper()

	resp := a.json(http.MethodPost, "/api/v1/users", root, map[string]any{
		"username": username,
		"password": "pw-" + username,
	})
	require.Equal(a.t, http.StatusCreated, resp.status, string(resp.body))

	var u userBody
	resp.decode(a.t, &u)

	return u.ID, a.login(username, "pw-"+username)
}

type idBody struct {
	ID string `json:"id"`
}

type balanceBody struct {
	Balance decimal.Decimal `json:"balance"`
}

func (a *api) balance(token, bankID string) decimal.Decimal {
	a.t.Helper()

	resp := a.json(http.MethodGet, "/api/v1/banks/"+bankID+"/balance", token, nil)
	require.Equal(a.t, http.StatusOK, resp.status, string(resp.body))

	var b balanceBody
	resp.decode(a.t, &b)

	return b.Balance
}

func TestPing(t *testing.T) {
	a := newAPI(t)

	resp := a.json(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"msg":"pong!"}`, string(resp.body))
}

func TestAuth(t *testing.T) {
	a := newAPI(t)

	t.Run("MissingToken", func(t *testing.T) {
		resp := a.json(http.MethodGet, "/api/v1/banks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "UNAUTHORIZED", resp.errorKind(t))
	})

	t.Run("GarbageToken", func(t *testing.T) {
		resp := a.json(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		resp := a.json(http.MethodPost, "/api/v1/login/access-token", "", map[string]string{
			"username": "root",
			"password": "nope",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "UNAUTHORIZED", resp.errorKind(t))
	})

	t.Run("TestToken", func(t *testing.T) {
		root := a.login("root", "changethis")

		resp := a.json(http.MethodPost, "/api/v1/login/test-token", root, nil)
		require.Equal(t, http.StatusOK, resp.status)

		var u userBody
		resp.decode(t, &u)
		assert.Equal(t, "root", u.Username)
	})

	t.Run("InactiveUserForbidden", func(t *testing.T) {
		root := a.login("root", "changethis")
		id, token := a.signup(root, "sleepy")

		resp := a.json(http.MethodPut, "/api/v1/users/"+id, root, map[string]any{"is_active": false})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		resp = a.json(http.MethodGet, "/api/v1/users/me", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.status)
		assert.Equal(t, "FORBIDDEN", resp.errorKind(t))
	})
}

func TestLedgerOverHTTP(t *testing.T) {
	a := newAPI(t)
	root := a.login("root", "changethis")

	_, u1 := a.signup(root, "u1")
	u2ID, u2 := a.signup(root, "u2")

	resp := a.json(http.MethodPost, "/api/v1/company", u1, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var c idBody
	resp.decode(t, &c)

	resp = a.json(http.MethodPost, "/api/v1/company/"+c.ID+"/members/"+u2ID+"/settler", u1, nil)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var member userBody
	resp.decode(t, &member)
	require.NotNil(t, member.Rank)
	assert.Equal(t, "SETTLER", *member.Rank)

	resp = a.json(http.MethodPost, "/api/v1/banks", u2, map[string]string{"name": "B"})
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "FORBIDDEN", resp.errorKind(t))

	resp = a.json(http.MethodPost, "/api/v1/banks", u1, map[string]string{"name": "B"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var b idBody
	resp.decode(t, &b)
	assert.True(t, a.balance(u1, b.ID).IsZero())

	resp = a.json(http.MethodPost, "/api/v1/banks/"+b.ID+"/transactions", u2, map[string]any{"amount": "100", "memo": "ore"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var tx struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	resp.decode(t, &tx)
	assert.Equal(t, "PENDING", tx.Status)
	assert.True(t, a.balance(u1, b.ID).IsZero())

	resp = a.json(http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", u2, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = a.json(http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", u1, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	assert.True(t, decimal.NewFromInt(100).Equal(a.balance(u1, b.ID)))

	resp = a.json(http.MethodDelete, "/api/v1/transactions/"+tx.ID, u2, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "INVALID_STATE", resp.errorKind(t))

	resp = a.json(http.MethodPut, "/api/v1/transactions/"+tx.ID+"/approve", u1, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

	resp = a.json(http.MethodPut, "/api/v1/users/"+u2ID+"/rank/governor", u1, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = a.json(http.MethodGet, "/api/v1/transactions", u2, nil)
	require.Equal(t, http.StatusOK, resp.status)

	var approved []idBody
	resp.decode(t, &approved)
	assert.Len(t, approved, 1)

	resp = a.json(http.MethodGet, "/api/v1/banks", u2, nil)
	require.Equal(t, http.StatusOK, resp.status)

	var banks []balanceBody
	resp.decode(t, &banks)
	require.Len(t, banks, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(banks[0].Balance))
}

func TestOutsiderGetsNotFound(t *testing.T) {
	a := newAPI(t)
	root := a.login("root", "changethis")

	_, owner := a.signup(root, "owner")
	_, outsider := a.signup(root, "outsider")

	resp := a.json(http.MethodPost, "/api/v1/company", owner, map[string]string{"name": "Ours"})
	require.Equal(t, http.StatusCreated, resp.status)

	resp = a.json(http.MethodPost, "/api/v1/banks", owner, map[string]string{"name": "Vault"})
	require.Equal(t, http.StatusCreated, resp.status)

	var b idBody
	resp.decode(t, &b)

	for _, path := range []string{"/api/v1/banks/" + b.ID, "/api/v1/banks/" + b.ID + "/balance", "/api/v1/banks/" + b.ID + "/transactions"} {
		resp = a.json(http.MethodGet, path, outsider, nil)
		assert.Equal(t, http.StatusNotFound, resp.status, path)
		assert.Equal(t, "NOT_FOUND", resp.errorKind(t))
	}
}

func TestValidation(t *testing.T) {
	a := newAPI(t)
	root := a.login("root", "changethis")
	_, gov := a.signup(root, "gov")

	resp := a.json(http.MethodPost, "/api/v1/company", gov, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INVALID_INPUT", resp.errorKind(t))

	resp = a.json(http.MethodGet, "/api/v1/banks/not-a-uuid", gov, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = a.json(http.MethodPut, "/api/v1/users/me", gov, map[string]any{"rank": "GOVERNOR"})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = a.json(http.MethodGet, "/api/v1/transactions?status=LOST", gov, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestImportCSV(t *testing.T) {
	a := newAPI(t)
	root := a.login("root", "changethis")
	_, gov := a.signup(root, "gov")

	resp := a.json(http.MethodPost, "/api/v1/company", gov, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.status)

	resp = a.json(http.MethodPost, "/api/v1/banks", gov, map[string]string{"name": "Vault"})
	require.Equal(t, http.StatusCreated, resp.status)

	var b idBody
	resp.decode(t, &b)

	upload := func(content string) response {
		var buf bytes.Buffer

		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "ledger.csv")
		require.NoError(t, err)

		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		return a.do(http.MethodPost, "/api/v1/banks/"+b.ID+"/transactions/import", gov, &buf, mw.FormDataContentType())
	}

	resp = upload("amount;memo\n12,50;ore\n-2,25;fuel\n")
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var imported struct {
		Imported int `json:"imported"`
	}
	resp.decode(t, &imported)
	assert.Equal(t, 2, imported.Imported)

	resp = upload("amount;memo\n1;ok\nnope;bad\n")
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = a.json(http.MethodGet, "/api/v1/banks/"+b.ID+"/transactions?status=PENDING", gov, nil)
	require.Equal(t, http.StatusOK, resp.status)

	var pending []idBody
	resp.decode(t, &pending)
	assert.Len(t, pending, 2)
}

func TestLinkDiscord(t *testing.T) {
	a := newAPI(t)
	root := a.login("root", "changethis")
	_, token := a.signup(root, "nelly")

	resp := a.json(http.MethodGet, "/api/v1/users/link-discord", token, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var link struct {
		URL string `json:"url"`
	}
	resp.decode(t, &link)

	u, err := url.Parse(link.URL)
	require.NoError(t, err)

	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	resp = a.json(http.MethodGet, "/api/v1/users/link-discord/callback?code=bad&state="+url.QueryEscape(state), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = a.json(http.MethodGet, "/api/v1/users/link-discord/callback?code=ok&state=forged", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = a.json(http.MethodGet, "/api/v1/users/link-discord/callback?code=ok&state="+url.QueryEscape(state), "", nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var linked userBody
	resp.decode(t, &linked)
	require.NotNil(t, linked.DiscordID)
	assert.Equal(t, "4242", *linked.DiscordID)
}
