package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/echolist/backend-go/internal/auth"
	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
)

// JWTAuthFilter 认证过滤器，校验 Bearer token 并写入 user_id
func JWTAuthFilter(jwtService *auth.JWTService) web.FilterFunc {
	return func(ctx *context.Context) {
		token, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
		if err != nil {
			unauthorized(ctx, "missing or malformed authorization header")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			unauthorized(ctx, "invalid or expired token")
			return
		}

		ctx.Input.SetData("user_id", claims.UserID)
		ctx.Input.SetData("username", claims.Username)
	}
}

func unauthorized(ctx *context.Context, message string) {
	ctx.Output.SetStatus(http.StatusUnauthorized)
	ctx.Output.Header("Content-Type", "application/json; charset=utf-8")
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   message,
	})
	ctx.Output.Body(body)
}
