package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

const contextIdentityKey = "identity"

// Identity is the caller resolved by AuthRequired. The zero value is an
// anonymous caller.
type Identity struct {
	userID string
	roles  []string
}

// UserID returns the token subject.
func (i Identity) UserID() string { return i.userID }

// Roles returns a copy of the token roles.
func (i Identity) Roles() []string { return slices.Clone(i.roles) }

func (i Identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i Identity) Authenticated() bool { return i.userID != "" }

// GetIdentity returns the caller, or an anonymous identity on public routes.
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(contextIdentityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}

// MustGetIdentity aborts with 401 when the caller is anonymous.
func MustGetIdentity(c *gin.Context) (Identity, bool) {
	id := GetIdentity(c)
	if !id.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: apperr.CodeUnauthorized})
		return Identity{}, false
	}
	return id, true
}
