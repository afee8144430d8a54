package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStatusOf(t *testing.T) {
	status, msg := StatusOf(Forbidden("Not authorized to access %s", "this task"))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized to access this task", msg)

	status, msg = StatusOf(errors.New("connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", msg)

	wrapped := Internal("Failed to fetch tasks", errors.New("boom"))
	status, msg = StatusOf(wrapped)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to fetch tasks", msg)
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")
}

func TestWriteEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, NotFound("Task not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Task not found"}`, rec.Body.String())
}

func TestDecodeJSON_Strict(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a","createdBy":"x"}`))
	err := DecodeJSON(req, &dst, true)
	status, _ := StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a","createdBy":"x"}`))
	require.NoError(t, DecodeJSON(req, &dst, false))
	assert.Equal(t, "a", dst.Title)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestNormalizeEmail(t *testing.T) {
	email, ok := NormalizeEmail("  Ana@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "ana@example.com", email)

	for _, bad := range []string{"", "ana", "Ana <ana@example.com>", "ana@"} {
		_, ok := NormalizeEmail(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2026-03-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = ParseDate("2026-03-01T10:30:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), d)

	_, ok = ParseDate("next tuesday")
	assert.False(t, ok)
}

func TestParseObjectIDs(t *testing.T) {
	_, err := ParseObjectIDs([]string{"64b7f0c2a1b2c3d4e5f60718", "nope"}, "task IDs")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Invalid task IDs", appErr.Message)

	ids, err := ParseObjectIDs([]string{"64b7f0c2a1b2c3d4e5f60718"}, "task IDs")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestEnvelopeOmitsEmpty(t *testing.T) {
	b, err := json.Marshal(envelope{Success: true, Data: []int{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[]}`, string(b))
}
