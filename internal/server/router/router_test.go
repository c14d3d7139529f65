package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/storage/inmemory"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) (*httptest.Server, *inmemory.Storage) {
	t.Helper()

	store := inmemory.NewStorage()

	ts := httptest.NewServer(NewRouter(store, WithSecret(testSecret)))
	t.Cleanup(ts.Close)

	return ts, store
}

func testRequest(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	defer resp.Body.Close()

	return resp, respBody
}

// registerUser registers a new user through the API and returns the JWT.
func registerUser(t *testing.T, ts *httptest.Server, login string) string {
	t.Helper()

	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/register", "", map[string]string{
		"login":    login,
		"password": "passwd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body)

	return string(body)
}

// registerAdmin seeds an admin user directly in storage and logs in through
// the API. Registration itself never grants the admin role.
func registerAdmin(t *testing.T, ts *httptest.Server, store *inmemory.Storage, login string) string {
	t.Helper()

	usr, err := users.CreateUser(login, "passwd")
	require.NoError(t, err)

	usr.Role = users.RoleAdmin

	require.NoError(t, store.CreateUser(context.Background(), usr))

	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    login,
		"password": "passwd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return string(body)
}

type listEnvelope struct {
	Data  []map[string]any `json:"data"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
}

func decodeList(t *testing.T, body []byte) listEnvelope {
	t.Helper()

	var envelope listEnvelope

	require.NoError(t, json.Unmarshal(body, &envelope))

	return envelope
}

func TestPing(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := testRequest(t, ts, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserRegisterAndLogin(t *testing.T) {
	ts, _ := newTestServer(t)

	token := registerUser(t, ts, "alice")
	require.NotEmpty(t, token)

	// Duplicate login.
	resp, _ := testRequest(t, ts, http.MethodPost, "/api/user/register", "", map[string]string{
		"login":    "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Valid login.
	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    "alice",
		"password": "passwd",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)

	// Wrong password.
	resp, _ = testRequest(t, ts, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown login.
	resp, _ = testRequest(t, ts, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    "nobody",
		"password": "passwd",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMe(t *testing.T) {
	ts, _ := newTestServer(t)

	token := registerUser(t, ts, "alice")

	resp, body := testRequest(t, ts, http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.Unmarshal(body, &me))

	assert.Equal(t, "alice", me["login"])
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, "active", me["status"])
	assert.Zero(t, me["balance"])
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := testRequest(t, ts, http.MethodGet, "/api/user/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = testRequest(t, ts, http.MethodGet, "/api/user/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOnlyRoutes(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	resp, _ := testRequest(t, ts, http.MethodGet, "/api/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = testRequest(t, ts, http.MethodGet, "/api/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFundRequestApprovalFlow(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	// User files a top-up request.
	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/fundrequests", userToken, map[string]any{
		"amount": 150,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))

	requestID, _ := created["id"].(string)
	require.NotEmpty(t, requestID)
	assert.Equal(t, "pending", created["status"])

	// Admin approves it.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/fundrequests/"+requestID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Balance reflects the credit.
	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/balance", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance map[string]float64
	require.NoError(t, json.Unmarshal(body, &balance))
	assert.InEpsilon(t, 150.0, balance["balance"], 1e-9)

	// A second approval fails and the balance stays put.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/fundrequests/"+requestID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/balance", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &balance))
	assert.InEpsilon(t, 150.0, balance["balance"], 1e-9)

	// Rejecting a settled request fails too.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/fundrequests/"+requestID+"/reject", adminToken, map[string]string{
		"admin_notes": "too late",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The request shows up as paid with the processing admin recorded.
	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/fundrequests", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeList(t, body)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "paid", envelope.Data[0]["status"])
	assert.Equal(t, "root", envelope.Data[0]["processed_by"])
}

func TestFundRequestValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	token := registerUser(t, ts, "alice")

	resp, _ := testRequest(t, ts, http.MethodPost, "/api/user/fundrequests", token, map[string]any{
		"amount": 0.5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = testRequest(t, ts, http.MethodPost, "/api/user/fundrequests", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveMissingFundRequest(t *testing.T) {
	ts, store := newTestServer(t)

	adminToken := registerAdmin(t, ts, store, "root")

	resp, _ := testRequest(t, ts, http.MethodPatch, "/api/admin/fundrequests/missing/approve", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderLifecycle(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	// User places an order.
	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/orders", userToken, map[string]any{
		"item_name": "guest post on example.com",
		"price":     120,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))

	orderID, _ := created["id"].(string)
	require.NotEmpty(t, orderID)
	assert.Equal(t, "pending", created["status"])

	// User attaches the article draft.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/user/orders/"+orderID+"/submission", userToken, map[string]string{
		"article_text": "draft body",
		"message":      "please review",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Completing a pending order is rejected.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/orders/"+orderID+"/complete", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The status endpoint refuses completed; it has its own endpoint.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", adminToken, map[string]string{
		"status": "completed",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// pending -> processing -> completed.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", adminToken, map[string]string{
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/orders/"+orderID+"/complete", adminToken, map[string]string{
		"message": "published",
		"link":    "https://example.com/post",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Filtering the user's orders by status.
	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/orders?status=completed", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeList(t, body)
	assert.Equal(t, 1, envelope.Total)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "completed", envelope.Data[0]["status"])
	assert.Equal(t, "https://example.com/post", envelope.Data[0]["completion_link"])

	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/orders?status=pending", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decodeList(t, body).Total)

	// Bad status filter value.
	resp, _ = testRequest(t, ts, http.MethodGet, "/api/user/orders?status=bogus", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderSubmissionOwnership(t *testing.T) {
	ts, _ := newTestServer(t)

	aliceToken := registerUser(t, ts, "alice")
	bobToken := registerUser(t, ts, "bob")

	resp, body := testRequest(t, ts, http.MethodPost, "/api/user/orders", aliceToken, map[string]any{
		"item_name": "guest post",
		"price":     50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))

	orderID, _ := created["id"].(string)

	// Bob cannot touch Alice's order; it reads as not found.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/user/orders/"+orderID+"/submission", bobToken, map[string]string{
		"article_text": "hijack",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsiteCatalog(t *testing.T) {
	ts, store := newTestServer(t)

	adminToken := registerAdmin(t, ts, store, "root")

	resp, body := testRequest(t, ts, http.MethodPost, "/api/websites", adminToken, map[string]any{
		"domain":           "example.com",
		"category":         "tech",
		"price":            200,
		"domain_authority": 55,
		"monthly_traffic":  120000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))

	siteID, _ := created["id"].(string)
	require.NotEmpty(t, siteID)
	assert.Equal(t, "pending", created["status"])

	// Pending sites are hidden from the public catalog.
	resp, body = testRequest(t, ts, http.MethodGet, "/api/websites", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decodeList(t, body).Total)

	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/websites/"+siteID+"/status", adminToken, map[string]string{
		"status": "active",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/websites", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeList(t, body)
	assert.Equal(t, 1, envelope.Total)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "example.com", envelope.Data[0]["domain"])

	resp, _ = testRequest(t, ts, http.MethodDelete, "/api/admin/websites/"+siteID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/websites", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decodeList(t, body).Total)
}

func TestWebsiteReviews(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	resp, body := testRequest(t, ts, http.MethodPost, "/api/websites", adminToken, map[string]any{
		"domain": "example.com",
		"price":  100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))

	siteID, _ := created["id"].(string)

	resp, _ = testRequest(t, ts, http.MethodPost, "/api/websites/"+siteID+"/reviews", userToken, map[string]any{
		"rating":  5,
		"comment": "smooth process",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Rating out of range.
	resp, _ = testRequest(t, ts, http.MethodPost, "/api/websites/"+siteID+"/reviews", userToken, map[string]any{
		"rating": 6,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Reviews are public.
	resp, body = testRequest(t, ts, http.MethodGet, "/api/websites/"+siteID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeList(t, body)
	assert.Equal(t, 1, envelope.Total)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, float64(5), envelope.Data[0]["rating"])
}

func TestBlog(t *testing.T) {
	ts, store := newTestServer(t)

	adminToken := registerAdmin(t, ts, store, "root")

	resp, body := testRequest(t, ts, http.MethodPost, "/api/blog", adminToken, map[string]any{
		"title":     "How To Pitch A Guest Post",
		"body":      "post body",
		"published": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "how-to-pitch-a-guest-post", created["slug"])

	// Same title means same slug.
	resp, _ = testRequest(t, ts, http.MethodPost, "/api/blog", adminToken, map[string]any{
		"title": "How To Pitch A Guest Post",
		"body":  "another body",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/blog/how-to-pitch-a-guest-post", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var post map[string]any
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, "post body", post["body"])

	resp, _ = testRequest(t, ts, http.MethodGet, "/api/blog/no-such-post", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/blog", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeList(t, body).Total)
}

func TestListPagination(t *testing.T) {
	ts, _ := newTestServer(t)

	token := registerUser(t, ts, "alice")

	for i := 0; i < 5; i++ {
		resp, _ := testRequest(t, ts, http.MethodPost, "/api/user/orders", token, map[string]any{
			"item_name": "guest post",
			"price":     10,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := testRequest(t, ts, http.MethodGet, "/api/user/orders?page=2&limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeList(t, body)
	assert.Equal(t, 2, envelope.Page)
	assert.Equal(t, 2, envelope.Limit)
	assert.Equal(t, 5, envelope.Total)
	assert.Len(t, envelope.Data, 2)
}

func TestAdminStats(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	resp, _ := testRequest(t, ts, http.MethodPost, "/api/user/orders", userToken, map[string]any{
		"item_name": "guest post",
		"price":     75,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := testRequest(t, ts, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(body, &stats))

	assert.Equal(t, float64(2), stats["total_users"])
	assert.Equal(t, float64(1), stats["total_orders"])

	byStatus, ok := stats["orders_by_status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), byStatus["pending"])

	recent, ok := stats["recent_orders"].([]any)
	require.True(t, ok)
	assert.Len(t, recent, 1)
}

func TestUpdateUserStatus(t *testing.T) {
	ts, store := newTestServer(t)

	userToken := registerUser(t, ts, "alice")
	adminToken := registerAdmin(t, ts, store, "root")

	resp, body := testRequest(t, ts, http.MethodGet, "/api/user/me", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.Unmarshal(body, &me))

	userID, _ := me["id"].(string)

	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/users/"+userID+"/status", adminToken, map[string]string{
		"status": "suspended",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = testRequest(t, ts, http.MethodGet, "/api/user/me", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "suspended", me["status"])

	// Unknown status value.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/users/"+userID+"/status", adminToken, map[string]string{
		"status": "banned",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown user.
	resp, _ = testRequest(t, ts, http.MethodPatch, "/api/admin/users/missing/status", adminToken, map[string]string{
		"status": "active",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
