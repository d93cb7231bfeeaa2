package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"asset-catalog/internal/app"
	"asset-catalog/internal/transport/http/response"
)

type TokenVerifier interface {
	Verify(token string) (app.Identity, error)
}

// IdentityHandler is a handler that runs only for authenticated callers.
type IdentityHandler func(c *gin.Context, id app.Identity)

type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Wrap verifies the bearer token and passes the caller's identity to h.
func (a *Authenticator) Wrap(h IdentityHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := a.identify(c)
		if !ok {
			return
		}
		h(c, id)
	}
}

func (a *Authenticator) identify(c *gin.Context) (app.Identity, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		response.Error(c, http.StatusUnauthorized, "missing authorization header")
		return app.Identity{}, false
	}

	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		response.Error(c, http.StatusUnauthorized, "invalid authorization scheme")
		return app.Identity{}, false
	}

	token := strings.TrimSpace(authHeader[len(prefix):])
	id, err := a.verifier.Verify(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid or expired token")
		return app.Identity{}, false
	}
	return id, true
}
