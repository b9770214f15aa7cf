package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/config"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

const (
	accessTokenType = "access"
	bearerPrefix    = "Bearer "
)

var errBadToken = errors.New("invalid token")

// AuthRequired accepts HS256 access tokens from the Authorization header or,
// for EventSource clients that cannot set headers, the token query parameter.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	secret := func() []byte { return []byte(cfg.GetJWTAccessSecret()) }

	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			unauthorized(c, "missing token")
			return
		}

		id, err := verifyAccessToken(raw, secret())
		if err != nil {
			unauthorized(c, errBadToken.Error())
			return
		}

		c.Set(contextIdentityKey, id)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), id.userID))
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c).HasRole(role) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Code: apperr.CodeUnauthorized})
	}
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	return c.Query("token")
}

func verifyAccessToken(raw string, secret []byte) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	if err != nil {
		return Identity{}, errBadToken
	}

	if kind, _ := claims["type"].(string); kind != accessTokenType {
		return Identity{}, errBadToken
	}
	subject, _ := claims.GetSubject()
	if strings.TrimSpace(subject) == "" {
		return Identity{}, errBadToken
	}

	return Identity{userID: subject, roles: rolesClaim(claims["roles"])}, nil
}

// rolesClaim accepts both []string and the []any the JSON decoder produces.
func rolesClaim(value any) []string {
	var roles []string
	switch v := value.(type) {
	case []string:
		roles = append(roles, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return roles
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: apperr.CodeUnauthorized})
}
