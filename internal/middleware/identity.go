package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"placement_backend/internal/util"
)

const SessionCookie = "placement_sid"

// Identity 登录用户使用 user-<id>，游客通过 HttpOnly cookie 分配 anon-<uuid>
func Identity(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			c.Set(util.ActorKey, &util.Actor{
				Identifier:    "user-" + strconv.FormatUint(uint64(claims.UserID), 10),
				FullName:      claims.Name,
				Email:         claims.Email,
				Authenticated: true,
			})
			c.Next()
			return
		}

		sid, err := c.Cookie(SessionCookie)
		if _, perr := uuid.Parse(sid); err != nil || perr != nil {
			sid = uuid.New().String()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				MaxAge:   365 * 24 * 3600,
				HttpOnly: true,
				Secure:   secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(util.ActorKey, &util.Actor{Identifier: "anon-" + sid})
		c.Next()
	}
}
