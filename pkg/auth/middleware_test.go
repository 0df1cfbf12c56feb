package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, signer *Signer, roles ...Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{Middleware(signer)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		fromGin, ok := IdentityFromGin(c)
		require.True(t, ok)
		fromCtx, ok := IdentityFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, fromGin, fromCtx)
		c.String(http.StatusOK, fromGin.ID.String())
	})
	r.GET("/protected", handlers...)
	return r
}

func TestMiddleware(t *testing.T) {
	privPEM, pubPEM := generateTestKeys(t)
	signer, err := NewSigner(privPEM, pubPEM, "rentrover-auth")
	require.NoError(t, err)

	owner := testIdentity(RoleOwner)
	token, err := signer.GenerateToken(owner, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		roles      []Role
		wantStatus int
	}{
		{
			name:       "valid bearer token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "token query parameter",
			setup:      func(r *http.Request) { r.URL.RawQuery = "token=" + token },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing bearer prefix",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", token) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "role allowed",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			roles:      []Role{RoleOwner, RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "role forbidden",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			roles:      []Role{RoleRenter},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, signer, tt.roles...)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, owner.ID.String(), rec.Body.String())
			}
		})
	}
}
