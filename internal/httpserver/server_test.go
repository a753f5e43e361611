package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/inventory/internal/db"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/middleware/auth"
	"github.com/Skotchmaster/inventory/internal/repo"
	"github.com/Skotchmaster/inventory/internal/search"
	"github.com/Skotchmaster/inventory/internal/service"
	"github.com/Skotchmaster/inventory/internal/tokens"
)

var testSecret = []byte("test-jwt-secret")

type testServer struct {
	e    *echo.Echo
	repo *repo.GormRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := &repo.GormRepo{DB: gdb}
	issuer := &tokens.Issuer{Secret: testSecret, TTL: time.Minute}

	e := New(&Deps{
		DB:       gdb,
		Tokens:   issuer,
		Users:    &UserHTTP{Svc: service.NewUserService(r, events.Nop{}, issuer)},
		Products: &ProductHTTP{Svc: service.NewProductService(r, search.Nop{}, events.Nop{})},
		Catalog:  &CatalogHTTP{Svc: service.NewCatalogService(r)},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &testServer{e: e, repo: r}
}

type call struct {
	method  string
	path    string
	body    string
	token   string
	cookies []*http.Cookie
	headers map[string]string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// seed creates role 1 and category 1.
func (s *testServer) seed(t *testing.T) {
	t.Helper()

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/roles", body: `{"name":"Pharmacist"}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/categories", body: `{"name":"Painkillers"}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) signup(t *testing.T, username, email string) {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":"secret12","roleId":1}`, username, email)
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup", body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"password":"secret12"}`, username)
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/login", body: body})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.AccessCookie {
			return ck.Value
		}
	}
	t.Fatal("login did not set the access cookie")
	return ""
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"username":"alice","email":"a@x.com","password":"secret12","roleId":1}`})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User created successfully", rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"username":"alice","email":"other@x.com","password":"secret12","roleId":1}`})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "credential already exist", resp.Error)
	assert.Equal(t, "username already exist", resp.Message)
	assert.Equal(t, map[string]string{"username": "alice"}, resp.Duplicates)
	assert.Equal(t, "/api/v1/users/signup", resp.Path)
	assert.False(t, resp.Timestamp.IsZero())

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"username":"alice","email":"a@x.com","password":"secret12","roleId":1}`})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Duplicate credential(s): username, email already exist", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"username":"bob","email":"b@x.com","password":"secret12","roleId":42}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Role not found", decodeError(t, rec).Message)
}

func TestSignup_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"username":"","email":"someInvalidEmail@.com","password":"short"}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "validation error", resp.Error)
	assert.Equal(t, map[string]string{
		"username": "Username is required",
		"email":    "Invalid email",
		"password": "Password must be at least 8 characters",
		"roleId":   "Role id is required",
	}, resp.FieldErrors)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup", body: `{"username":`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"username":"a@x.com","password":"secret12"}`})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login Successfully", rec.Body.String())
	assert.NotEmpty(t, s.login(t, "alice"))

	wrong := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"username":"alice","password":"nope-nope"}`})
	unknown := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"username":"mallory","password":"secret12"}`})

	require.Equal(t, http.StatusBadRequest, wrong.Code)
	require.Equal(t, http.StatusBadRequest, unknown.Code)
	w, u := decodeError(t, wrong), decodeError(t, unknown)
	assert.Equal(t, "Invalid username or password", w.Message)
	assert.Equal(t, w.Error, u.Error)
	assert.Equal(t, w.Message, u.Message)
}

func TestUsers_GetAndList(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")
	s.signup(t, "bob", "b@x.com")

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/users/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice","email":"a@x.com","roleName":"Pharmacist"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret12")

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"username":"alice","email":"a@x.com","roleName":"Pharmacist"},
		{"username":"bob","email":"b@x.com","roleName":"Pharmacist"}
	]`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/99"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeError(t, rec).Message)
}

func TestUsers_Update(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")
	s.signup(t, "bob", "b@x.com")

	rec := s.do(t, call{method: http.MethodPut, path: "/api/v1/users/1", body: `{"email":"alice@x.com"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Successfully updated profile", rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/1"})
	assert.JSONEq(t, `{"username":"alice","email":"alice@x.com","roleName":"Pharmacist"}`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/1", body: `{"username":null}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username is required", decodeError(t, rec).FieldErrors["username"])

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/1", body: `{"username":"bob"}`})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username already exist", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/1", body: `{"username":"alice"}`})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/99", body: `{"username":"zed"}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decodeError(t, rec).Message)
}

func TestUsers_Delete(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")

	rec := s.do(t, call{method: http.MethodDelete, path: "/api/v1/users/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", rec.Body.String())

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/users/1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decodeError(t, rec).Message)
}

func TestUsers_DeleteCreatorOfProductsConflicts(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")
	token := s.login(t, "alice")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("111"), token: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/users/1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "record is still in use", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/products/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"createdBy":1`)
}

func productBody(barcode string) string {
	return fmt.Sprintf(`{"name":"Aspirin","brand":"Bayer","description":"500mg","categoryId":1,"barcode":%q}`, barcode)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")
	token := s.login(t, "alice")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("barcode-1")})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)

	for i := 1; i <= 7; i++ {
		rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody(fmt.Sprintf("barcode-%d", i)), token: token})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Product created successfully", rec.Body.String())
	}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("barcode-1"), token: token})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "barcode already exist", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/products/5", body: productBody("barcode-7"), token: token})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/products/5", body: productBody("barcode-5"), token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Product updated successfully", rec.Body.String())

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/products/50", body: productBody("barcode-50"), token: token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product not found", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/products/5"})
	require.Equal(t, http.StatusOK, rec.Code)
	var prod struct {
		ID        uint   `json:"id"`
		Barcode   string `json:"barcode"`
		CreatedBy uint   `json:"createdBy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
	assert.Equal(t, "barcode-5", prod.Barcode)
	assert.Equal(t, uint(1), prod.CreatedBy)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/products?page=2&size=3"})
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Page    int   `json:"page"`
			Total   int64 `json:"total"`
			HasNext bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 2, page.Meta.Page)
	assert.Equal(t, int64(7), page.Meta.Total)
	assert.True(t, page.Meta.HasNext)

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/products/7", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/products/7"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product not found", decodeError(t, rec).Message)
}

func TestProducts_CookieSessionNeedsCSRFToken(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")

	access := &http.Cookie{Name: auth.AccessCookie, Value: s.login(t, "alice")}

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/products", cookies: []*http.Cookie{access}})
	require.Equal(t, http.StatusOK, rec.Code)
	csrfToken := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, csrfToken)
	xsrf := &http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("111"),
		cookies: []*http.Cookie{access, xsrf},
		headers: map[string]string{"Origin": "http://example.com"}})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("111"),
		cookies: []*http.Cookie{access, xsrf},
		headers: map[string]string{"Origin": "http://example.com", "X-CSRF-Token": csrfToken}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProducts_Validation(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")
	token := s.login(t, "alice")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: `{"brand":"Bayer"}`, token: token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{
		"name":       "Name is required",
		"barcode":    "Barcode is required",
		"categoryId": "Category id is required",
	}, decodeError(t, rec).FieldErrors)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products",
		body: `{"name":"Aspirin","categoryId":9,"barcode":"111"}`, token: token})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "category not found", decodeError(t, rec).Message)
}

func TestProducts_InvalidTokenIsAnonymous(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/products", token: "garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/products", body: productBody("111"), token: "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
}

func TestUsers_StaleCredentialsDoNotBlockPublicRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	s.signup(t, "alice", "a@x.com")

	stale := &http.Cookie{Name: auth.AccessCookie, Value: "garbage"}

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/products", cookies: []*http.Cookie{stale}})
	require.Equal(t, http.StatusOK, rec.Code)
	csrfToken := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, csrfToken)
	xsrf := &http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken}
	browser := map[string]string{"Origin": "http://example.com", "X-CSRF-Token": csrfToken}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/login",
		body:    `{"username":"alice","password":"secret12"}`,
		cookies: []*http.Cookie{stale, xsrf}, headers: browser})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fresh string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.AccessCookie {
			fresh = ck.Value
		}
	}
	assert.NotEmpty(t, fresh)
	assert.NotEqual(t, "garbage", fresh)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body:    `{"username":"bob","email":"b@x.com","password":"secret12","roleId":1}`,
		cookies: []*http.Cookie{stale, xsrf}, headers: browser})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users",
		headers: map[string]string{echo.HeaderAuthorization: "Basic dXNlcjpwYXNz"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body:    `{"username":"carol","email":"c@x.com","password":"secret12","roleId":1}`,
		headers: map[string]string{echo.HeaderAuthorization: "Basic dXNlcjpwYXNz"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProducts_SearchDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/products/search?q=aspirin"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/products/search"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query is required", decodeError(t, rec).FieldErrors["q"])
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/roles", body: `{"name":"Pharmacist"}`})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "name already exist", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/roles", body: `{"name":"  Pharmacist "}`})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "name already exist", decodeError(t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/categories", body: `{"name":" "}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/categories", body: `{"name":" Vitamins "}`})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":2,"name":"Vitamins"}`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/roles"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"Pharmacist"}]`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/categories/1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Painkillers"}`, rec.Body.String())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/roles/9"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Role not found", decodeError(t, rec).Message)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/health/live"}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/health/ready"}).Code)
}

func TestErrorHandler_HidesUnclassifiedErrors(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()

	ErrorHandler(errors.New("pq: password authentication failed"), e.NewContext(req, rec))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal-error", resp.Error)
	assert.NotContains(t, resp.Message, "password authentication")
}
