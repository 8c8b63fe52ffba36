package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"callpower/internal/config"

	"github.com/gin-gonic/gin"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

type memReplay map[string]bool

func (r memReplay) FirstUse(ctx context.Context, jti string, until time.Time) (bool, error) {
	if r[jti] {
		return false, nil
	}
	r[jti] = true
	return true, nil
}

func TestIssueAndVerify(t *testing.T) {
	m := newManager(t)
	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, Grant{UserID: "user-1", Role: "analyst", CampaignIDs: []int64{1, 4}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Subject != "user-1" || claims.Role != "analyst" || !reflect.DeepEqual(claims.CampaignIDs, []int64{1, 4}) {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	refresh, err := m.Verify(pair.RefreshToken, TokenTypeRefresh, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if !reflect.DeepEqual(refresh.Grant(), claims.Grant()) {
		t.Fatalf("refresh grant %+v differs from access grant %+v", refresh.Grant(), claims.Grant())
	}
}

func TestIssuePair_RequiresGrant(t *testing.T) {
	if _, err := newManager(t).IssuePair(time.Now(), Grant{UserID: "u"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := newManager(t)
	p, _ := m.IssuePair(time.Now(), Grant{UserID: "u", Role: "owner"})
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); !errors.Is(err, ErrTokenType) {
		t.Fatalf("expected ErrTokenType, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, Grant{UserID: "u", Role: "owner"})
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(20*time.Minute)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsOtherIssuer(t *testing.T) {
	other, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, _ := other.IssuePair(time.Now(), Grant{UserID: "u", Role: "owner"})
	if _, err := newManager(t).Verify(p.AccessToken, TokenTypeAccess, time.Now()); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestRefresh_RotatesOnce(t *testing.T) {
	m := newManager(t).WithReplayGuard(memReplay{})
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, Grant{UserID: "u", Role: "owner", CampaignIDs: []int64{3}})

	next, err := m.Refresh(context.Background(), now.Add(time.Hour), p.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := m.Verify(next.AccessToken, TokenTypeAccess, now.Add(time.Hour))
	if err != nil || !reflect.DeepEqual(claims.CampaignIDs, []int64{3}) {
		t.Fatalf("expected refreshed access token with same scope, got %+v %v", claims, err)
	}

	if _, err := m.Refresh(context.Background(), now.Add(time.Hour), p.RefreshToken); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}
	if _, err := m.Refresh(context.Background(), now, p.AccessToken); !errors.Is(err, ErrTokenType) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(t)
	p, _ := m.IssuePair(time.Now(), Grant{UserID: "u", Role: "owner", CampaignIDs: []int64{2}})

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		role, _ := Role(c.Request.Context())
		if role != "owner" || !CanAccessCampaign(c.Request.Context(), 2) {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + p.RefreshToken, http.StatusUnauthorized},
		{"Bearer " + p.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("header %q: expected %d, got %d", tc.header, tc.want, w.Code)
		}
		if tc.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("expected WWW-Authenticate on 401")
		}
	}
}

func TestCanAccessCampaign(t *testing.T) {
	ctx := WithIdentity(context.Background(), Grant{UserID: "u", Role: "analyst", CampaignIDs: []int64{2}})
	if !CanAccessCampaign(ctx, 2) || CanAccessCampaign(ctx, 3) {
		t.Fatalf("scoped identity should only see campaign 2")
	}
	if !CanAccessCampaign(WithIdentity(context.Background(), Grant{UserID: "u", Role: "owner"}), 3) {
		t.Fatalf("unscoped identity should see every campaign")
	}
}

func TestRedisReplayGuard_ExpiredIsNotFirstUse(t *testing.T) {
	g := NewRedisReplayGuard(nil)
	first, err := g.FirstUse(context.Background(), "jti", time.Now().Add(-time.Minute))
	if err != nil || first {
		t.Fatalf("expected expired jti to be refused without a redis call, got %v %v", first, err)
	}
}
