package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimarket/scimarketd/internal/domain"
)

func TestParseListOpts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=9999", 500, 0},
		{"limit=0", 50, 0},
		{"limit=-5&offset=-5", 50, 0},
		{"limit=abc&offset=xyz", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/nfts/marketplace?"+tc.query, nil)
			opts := parseListOpts(r)
			assert.Equal(t, tc.wantLimit, opts.Limit)
			assert.Equal(t, tc.wantOffset, opts.Offset)
		})
	}
}

func TestTokenIDParam(t *testing.T) {
	t.Parallel()

	for raw, wantErr := range map[string]bool{
		"1":   false,
		"983": false,
		"0":   true,
		"-1":  true,
		"abc": true,
		"1.5": true,
		"":    true,
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/nfts/x", nil)
		r.SetPathValue("tokenId", raw)
		id, err := tokenIDParam(r)
		if wantErr {
			assert.Error(t, err, "raw %q", raw)
		} else {
			require.NoError(t, err, "raw %q", raw)
			assert.NotZero(t, id)
		}
	}
}

func TestActorParam(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/api/nfts/owned", nil)
	actor, err := actorParam(r)
	require.NoError(t, err)
	assert.Nil(t, actor)

	r = httptest.NewRequest(http.MethodGet, "/api/nfts/owned?actor=0x00000000000000000000000000000000000000a1", nil)
	actor, err = actorParam(r)
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "0x00000000000000000000000000000000000000A1", actor.Hex())

	r = httptest.NewRequest(http.MethodGet, "/api/nfts/owned?actor=bogus", nil)
	_, err = actorParam(r)
	assert.Error(t, err)
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrCommandNotAllowed, http.StatusForbidden},
		{domain.ErrInvalidCommand, http.StatusUnprocessableEntity},
		{domain.ErrCommandRejected, http.StatusUnprocessableEntity},
		{domain.ErrLedgerUnreachable, http.StatusBadGateway},
		{domain.ErrFactUnavailable, http.StatusBadGateway},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("something else entirely"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeDomainError(w, tc.err)
		assert.Equal(t, tc.want, w.Code, "error %v", tc.err)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	}
}
