package qu

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry 解析令牌过期时间
// 优先读 JWT 的 exp 声明（不校验签名，仅用于观测），退化到 expires_in
func tokenExpiry(resp tokenResponse) time.Time {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	if resp.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return time.Time{}
}
