package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestServiceErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
		reason string
	}{
		{&services.Error{Kind: services.ErrValidation, Reason: "Diagnosis is required"}, http.StatusBadRequest, "validation", "Diagnosis is required"},
		{&services.Error{Kind: services.ErrNotFound, Reason: "Pet not found"}, http.StatusNotFound, "not_found", "Pet not found"},
		{&services.Error{Kind: services.ErrAccessDenied, Reason: "nope"}, http.StatusForbidden, "access_denied", "nope"},
		{&services.Error{Kind: services.ErrConflict, Reason: "time slot is already booked"}, http.StatusConflict, "conflict", "time slot is already booked"},
		{&services.Error{Kind: services.ErrStorage, Reason: "internal storage error"}, http.StatusInternalServerError, "storage", "internal storage error"},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "storage", "internal storage error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		ServiceError(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body ResponseData
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
		assert.Equal(t, tc.kind, body.Kind)
		assert.Equal(t, tc.reason, body.Error)
		assert.NotContains(t, w.Body.String(), "connection refused")
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 2, Limit: 20, Total: 41, Pages: 3}, NewPagination(2, 20, 41))
	assert.Equal(t, int64(0), NewPagination(1, 20, 0).Pages)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret", JWTExpirationMinutes: 5}

	token, err := GenerateAccessToken("staff-a", models.RoleManager, "store-a", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "staff-a", claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, "store-a", claims.StoreID)

	_, err = ValidateToken(token, "other")
	assert.Error(t, err)

	_, err = GenerateAccessToken("", models.RoleUser, "", cfg)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s3cret", JWTExpirationMinutes: -1}
	token, err := GenerateAccessToken("owner-1", models.RoleUser, "", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(token, "s3cret")
	assert.Error(t, err)
}

type cancelBody struct {
	Reason string `json:"reason" validate:"max=10"`
	Kind   string `json:"kind" validate:"required,oneof=a b"`
}

func TestBindAndValidate(t *testing.T) {
	run := func(body string) (*httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var dst cancelBody
		return w, BindAndValidate(c, &dst)
	}

	_, ok := run(`{"kind":"a"}`)
	assert.True(t, ok)

	w, ok := run(`{"kind":"c","reason":"far too long a reason"}`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "kind must be one of [a b]")
	assert.Contains(t, w.Body.String(), "reason must be at most 10")

	w, ok = run(`{not json`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBindOptionalEmptyBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/", http.NoBody)
	var dst cancelBody
	assert.True(t, BindOptional(c, &dst))

	// chunked requests report an unknown length
	c.Request = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(""))
	c.Request.ContentLength = -1
	assert.True(t, BindOptional(c, &dst))

	c.Request = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"kind":"a","reason":"moving"}`))
	c.Request.ContentLength = -1
	require.True(t, BindOptional(c, &dst))
	assert.Equal(t, "moving", dst.Reason)
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "production", "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("op", "x").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"op":"x"`)
	assert.Contains(t, out, `"service":"petcare-vet-server"`)

	buf.Reset()
	log = newLogger(&buf, "production", "bogus")
	log.Info().Msg("info")
	assert.Contains(t, buf.String(), fmt.Sprintf("%q", "info"))
}
