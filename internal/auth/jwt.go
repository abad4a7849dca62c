package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateJWT creates a token for a given user. Used by tests and tooling;
// production tokens come from the auth collaborator.
func GenerateJWT(userID string, isAdmin bool, secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"is_admin": isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates token and extracts the acting context.
func ParseJWT(tokenStr, secret string) (ActingContext, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return ActingContext{}, err
	}

	if !token.Valid {
		return ActingContext{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ActingContext{}, jwt.ErrTokenMalformed
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return ActingContext{}, jwt.ErrTokenMalformed
	}

	isAdmin, _ := claims["is_admin"].(bool)
	return ActingContext{UserID: userID, IsAdmin: isAdmin}, nil
}

func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
