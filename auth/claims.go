package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims JWT 载荷结构。
// 内嵌 jwt.RegisteredClaims 以支持标准声明（exp, sub, iss 等），
// Subject 即账号标识（邮箱）。
type Claims struct {
	jwt.RegisteredClaims
}
