package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/common/logger"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/model"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"

	principalKey = "principal"
)

// Principal reads the caller identity set by the auth proxy in front of the
// service. Requests without one pass through with a zero principal.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := model.Principal{
			UserID: strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Email:  strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserEmail))),
		}
		c.Set(principalKey, p)

		if !p.IsZero() {
			ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
				UserID: logger.Ptr(p.Identity()),
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(model.Principal); ok {
			return p
		}
	}
	return model.Principal{}
}
