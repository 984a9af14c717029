package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incubator/internal/auth"
)

func loginAsAdmin(t *testing.T, env *testEnv) []*http.Cookie {
	t.Helper()
	env.dir.users["admin-1"] = &auth.User{
		ID:            "admin-1",
		Name:          "Ops",
		Email:         "ops@incubator.test",
		PasswordHash:  "plain:Admin#123",
		Role:          auth.RoleAdmin,
		EmailVerified: true,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := env.do(http.MethodPost, "/api/auth/login", `{"email":"ops@incubator.test","password":"Admin#123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return sessionCookies(rec)
}

func listedIDs(t *testing.T, body []byte) (ids []string, total int) {
	t.Helper()
	var out struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	for _, u := range out.Users {
		ids = append(ids, u.ID)
	}
	return ids, out.Total
}

func TestAdminListUsersNewestFirstWithStablePages(t *testing.T) {
	env := newTestEnv(t)
	cookies := loginAsAdmin(t, env)

	// Five accounts created a day apart; the newest must come back first.
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("u-%02d", i)
		env.dir.users[id] = &auth.User{
			ID:            id,
			Name:          fmt.Sprintf("Startup %d", i),
			Email:         fmt.Sprintf("founder%d@acme.test", i),
			PasswordHash:  "plain:Secret#123",
			Role:          auth.RoleUser,
			EmailVerified: true,
			CreatedAt:     base.AddDate(0, 0, i),
		}
	}

	rec := env.do(http.MethodGet, "/api/admin/users?role=user&page=1&pageSize=2", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, total := listedIDs(t, rec.Body.Bytes())
	assert.Equal(t, []string{"u-05", "u-04"}, ids)
	assert.Equal(t, 5, total)

	rec = env.do(http.MethodGet, "/api/admin/users?role=user&page=2&pageSize=2", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, total = listedIDs(t, rec.Body.Bytes())
	assert.Equal(t, []string{"u-03", "u-02"}, ids)
	assert.Equal(t, 5, total)

	// The last page is short, and the total is counted before paging.
	rec = env.do(http.MethodGet, "/api/admin/users?role=user&page=3&pageSize=2", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, total = listedIDs(t, rec.Body.Bytes())
	assert.Equal(t, []string{"u-01"}, ids)
	assert.Equal(t, 5, total)

	// A page past the end is empty, not an error.
	rec = env.do(http.MethodGet, "/api/admin/users?role=user&page=9&pageSize=2", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, total = listedIDs(t, rec.Body.Bytes())
	assert.Empty(t, ids)
	assert.Equal(t, 5, total)
}

func TestAdminListUsersRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	cookies := loginAsAdmin(t, env)

	rec := env.do(http.MethodGet, "/api/admin/users?role=superuser", "", cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
