package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/pkg/auth"
)

const principalKey = "principal"

func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
}

// CurrentPrincipal returns the authenticated caller. Routes behind the auth
// middleware always have one.
func CurrentPrincipal(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}
