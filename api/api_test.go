/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/database/dbtest"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/service"
	"github.com/tomoncle/libris/types"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	svc    Services
}

type rawEnvelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	audit := service.NewAuditService(db)
	svc := Services{
		Catalog: service.NewCatalog(db, audit),
		Books:   service.NewBookService(db, audit),
		Loans:   service.NewLoanService(db, audit, service.DefaultLoanPolicy()),
		Admin:   service.NewAdminService(db, audit),
		Audit:   audit,
		Stats:   service.NewStatsService(db),
	}
	_, err := svc.Admin.Bootstrap(context.Background(), service.BootstrapInput{
		Username: "admin",
		Email:    "admin@example.org",
		Password: "admin-password",
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(testSecret, "libris-test", time.Hour)
	require.NoError(t, err)
	router := NewRouter(svc, NewAuthenticator(tokens, nil), Options{})
	return &testServer{t: t, router: router, svc: svc}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, rawEnvelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env rawEnvelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp loginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func (s *testServer) member(username string) (int64, string) {
	s.t.Helper()
	user, err := s.svc.Admin.CreateUser(context.Background(), nil, service.UserInput{
		Username: username,
		Email:    username + "@example.org",
		Password: "password-" + username,
		Roles:    []string{auth.RoleMember},
	})
	require.NoError(s.t, err)
	return user.ID, s.login(username, "password-"+username)
}

func TestHealthWithoutReporter(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), env.RequestID)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "trace-42", w.Header().Get(RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	w, _ = s.do(http.MethodGet, "/api/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, env.Message, "invalid username or password")

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeReturnsPermissions(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin-password")

	w, env := s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "admin", me.User.Username)
	assert.Equal(t, []string{auth.RoleAdmin}, me.User.Roles)
	assert.Len(t, me.Permissions, len(auth.AllPermissions))
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin-password")

	w, _ := s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, env.Message, "revoked")
}

func TestDirectoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin-password")

	w, env := s.do(http.MethodPost, "/api/authors", token, service.CatalogInput{Name: "Ursula K. Le Guin"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var author dto.CatalogDTO
	require.NoError(t, json.Unmarshal(env.Data, &author))
	assert.True(t, author.IsActive)

	w, _ = s.do(http.MethodPost, "/api/authors", token, service.CatalogInput{Name: "Ursula K. Le Guin"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/authors", token, service.CatalogInput{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/authors?page=1&page_size=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.Page[dto.CatalogDTO]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Data, 1)
	assert.Equal(t, author.ID, page.Data[0].ID)

	w, _ = s.do(http.MethodGet, "/api/authors/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/authors/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/authors?page=x", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberPermissions(t *testing.T) {
	s := newTestServer(t)
	_, token := s.member("reader")

	w, _ := s.do(http.MethodGet, "/api/categories", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodPost, "/api/categories", token, service.CatalogInput{Name: "Poetry"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, env.Code)

	w, _ = s.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/audit", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMemberSeesOnlyOwnLoans(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	adminToken := s.login("admin", "admin-password")
	readerID, readerToken := s.member("reader")
	otherID, _ := s.member("other")

	a, err := s.svc.Catalog.Authors.Create(ctx, nil, service.CatalogInput{Name: "Octavia Butler"})
	require.NoError(t, err)
	c, err := s.svc.Catalog.Categories.Create(ctx, nil, service.CatalogInput{Name: "Science Fiction"})
	require.NoError(t, err)
	book, err := s.svc.Books.Create(ctx, nil, service.BookInput{
		Title:       "Kindred",
		ISBN:        "9780807083697",
		AuthorID:    a.ID,
		CategoryID:  c.ID,
		TotalCopies: 3,
	})
	require.NoError(t, err)

	w, env := s.do(http.MethodPost, "/api/loans", adminToken, checkoutRequest{UserID: readerID, BookID: book.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var readerLoan dto.LoanDTO
	require.NoError(t, json.Unmarshal(env.Data, &readerLoan))
	assert.Equal(t, "active", readerLoan.Status)

	w, env = s.do(http.MethodPost, "/api/loans", adminToken, checkoutRequest{UserID: otherID, BookID: book.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var otherLoan dto.LoanDTO
	require.NoError(t, json.Unmarshal(env.Data, &otherLoan))

	w, _ = s.do(http.MethodPost, "/api/loans", readerToken, checkoutRequest{UserID: readerID, BookID: book.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodGet, "/api/loans", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.Page[dto.LoanDTO]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, readerLoan.ID, page.Data[0].ID)

	w, env = s.do(http.MethodGet, "/api/loans", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.TotalCount)

	w, _ = s.do(http.MethodGet, "/api/loans/"+itoa(otherLoan.ID), readerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodPost, "/api/loans/"+itoa(readerLoan.ID)+"/renew", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var renewed dto.LoanDTO
	require.NoError(t, json.Unmarshal(env.Data, &renewed))
	assert.Equal(t, 1, renewed.Renewals)

	w, _ = s.do(http.MethodPost, "/api/loans/"+itoa(otherLoan.ID)+"/renew", readerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodPost, "/api/loans/"+itoa(readerLoan.ID)+"/return", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var returned dto.LoanDTO
	require.NoError(t, json.Unmarshal(env.Data, &returned))
	assert.Equal(t, "returned", returned.Status)
	assert.NotNil(t, returned.ReturnedAt)

	w, _ = s.do(http.MethodGet, "/api/loans?status=lost", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndAudit(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin-password")

	w, env := s.do(http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.NotNil(t, stats.Library)
	assert.Equal(t, 1, stats.Library.Users)

	w, env = s.do(http.MethodGet, "/api/audit?action=login", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.Page[dto.AuditEntryDTO]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.TotalCount)

	w, env = s.do(http.MethodGet, "/api/audit/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary summaryResponse
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.NotEmpty(t, summary.Actions)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{types.NewInvalidArgument("name", "is required"), http.StatusBadRequest},
		{&types.UnauthorizedError{}, http.StatusUnauthorized},
		{&types.ForbiddenError{Permission: auth.PermUsersRead}, http.StatusForbidden},
		{types.NewNotFound("book", 7), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", types.NewConflict("book", "isbn taken")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), "%v", tc.err)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
