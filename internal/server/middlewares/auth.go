package middlewares

import (
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	srvErrors "github.com/kubev2v/restquery/pkg/errors"
)

const claimsKey = "jwt_claims"

// LoadVerificationKey reads a PEM encoded RSA or ECDSA public key.
func LoadVerificationKey(path string) (crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jwt key: %w", err)
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%s holds neither an RSA nor an ECDSA public key", path)
}

// Authenticator rejects requests without a bearer token signed by key. Routes listed in
// public are left open.
func Authenticator(key crypto.PublicKey, public ...string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		if slices.Contains(public, c.FullPath()) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			abortUnauthorized(c, srvErrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			reason := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				reason = "token expired"
			}
			abortUnauthorized(c, srvErrors.NewUnauthorizedError(reason))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims of the token accepted by Authenticator.
func Claims(c *gin.Context) jwt.MapClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(jwt.MapClaims)
	return claims
}

func abortUnauthorized(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}
