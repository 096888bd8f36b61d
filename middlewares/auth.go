package middlewares

import (
	"TicketMarket/consts"
	"TicketMarket/utils"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AuthorizeJWTMiddleware accepts a bearer token that is valid and not on the
// redis blacklist, and exposes its claims to handlers.
func AuthorizeJWTMiddleware(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			utils.AbortError(c, http.StatusUnauthorized, consts.MsgUnauthorized, "missing bearer token")
			return
		}
		if authorize(c, rdb, raw) {
			c.Next()
		}
	}
}

// OptionalJWTMiddleware lets anonymous requests through untouched. A token
// that is present still has to be valid.
func OptionalJWTMiddleware(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" || authorize(c, rdb, raw) {
			c.Next()
		}
	}
}

func bearerToken(c *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
}

// authorize stores the claims of raw on the context, or aborts and returns
// false.
func authorize(c *gin.Context, rdb *redis.Client, raw string) bool {
	if rdb != nil {
		n, err := rdb.Exists(c.Request.Context(), consts.BlacklistTokenPrefix+raw).Result()
		if err != nil {
			logrus.WithError(err).Error("checking token blacklist")
			utils.AbortError(c, http.StatusInternalServerError, consts.MsgSystemErr, nil)
			return false
		}
		if n != 0 {
			utils.AbortError(c, http.StatusUnauthorized, consts.MsgUnauthorized, "token revoked")
			return false
		}
	}

	claims, err := utils.ExtractCustomClaims(raw)
	if err != nil {
		utils.AbortError(c, http.StatusUnauthorized, consts.MsgUnauthorized, err.Error())
		return false
	}

	c.Set(consts.ContextAccountID, claims.Subject)
	c.Set(consts.ContextAccountEmail, strings.ToLower(strings.TrimSpace(claims.Email)))
	c.Set(consts.ContextAccountName, claims.Name)
	c.Set(consts.ContextRoles, claims.Roles)
	c.Set(consts.ContextTokenID, claims.ID)
	return true
}

// RequireRole lets the request through when the account holds any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, r := range utils.GetRoles(c) {
			if slices.Contains(roles, r) {
				c.Next()
				return
			}
		}
		utils.AbortError(c, http.StatusForbidden, consts.MsgForbidden, nil)
	}
}
