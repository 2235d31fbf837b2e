package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestIssuer() *Issuer {
	return NewIssuer("test-key", "college-records", time.Hour, 24*time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	iss := newTestIssuer()
	pair, err := iss.Issue("T-1", "Meera", RoleTeacher)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := iss.Parse(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "T-1" || claims.Name != "Meera" || claims.Role != RoleTeacher || claims.Type != TypeAccess {
		t.Fatalf("claims = %+v", claims)
	}
	if !pair.RefreshExp.After(pair.AccessExp) {
		t.Fatal("refresh must outlive access")
	}
}

func TestParseRejects(t *testing.T) {
	iss := newTestIssuer()
	pair, _ := iss.Issue("admin", "", RoleAdmin)

	other := NewIssuer("other-key", "college-records", time.Hour, time.Hour)
	if _, err := other.Parse(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key err = %v", err)
	}
	wrongIss := NewIssuer("test-key", "someone-else", time.Hour, time.Hour)
	if _, err := wrongIss.Parse(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer err = %v", err)
	}

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := iss.Parse(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err = %v", err)
	}
}

func TestRefresh(t *testing.T) {
	iss := newTestIssuer()
	pair, _ := iss.Issue("T-1", "Meera", RoleTeacher)

	if _, _, err := iss.Refresh(pair.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("access token refresh err = %v", err)
	}
	fresh, claims, err := iss.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "T-1" || fresh.AccessToken == "" {
		t.Fatalf("refresh = %+v %+v", fresh, claims)
	}
}

func TestCredentials(t *testing.T) {
	creds, err := NewCredentials("admin", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !creds.Check("admin", "s3cret") {
		t.Fatal("valid login rejected")
	}
	if creds.Check("admin", "wrong") || creds.Check("root", "s3cret") {
		t.Fatal("invalid login accepted")
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := newTestIssuer()
	r := gin.New()
	r.GET("/admin", RequireRole(iss, RoleAdmin), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})

	admin, _ := iss.Issue("admin", "", RoleAdmin)
	teacher, _ := iss.Issue("T-1", "Meera", RoleTeacher)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + admin.RefreshToken, http.StatusUnauthorized},
		{"wrong role", "Bearer " + teacher.AccessToken, http.StatusForbidden},
		{"admin", "Bearer " + admin.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
