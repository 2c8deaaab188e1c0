package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beatchart/beatchart/config"
	"github.com/beatchart/beatchart/utils"
)

// AdminSecretHeader carries the shared admin secret.
const AdminSecretHeader = "X-Admin-Secret"

// AdminRequired gates administrative endpoints behind a static shared
// secret compared in constant time.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secret := config.Get().AdminSecret
		got := ctx.GetHeader(AdminSecretHeader)
		if got == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "admin secret missing")
			ctx.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			utils.Error(ctx, http.StatusUnauthorized, 40111, "admin secret invalid")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
