package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ContextDoctorID = "doctor_id"

// DoctorAuth validates doctor session tokens issued by the identity
// service. Token-carrying surfaces (email links, webhook replies) have
// their own credential, so the middleware only rejects tokens that are
// present and invalid.
type DoctorAuth struct {
	secret []byte
}

func NewDoctorAuth(secret string) *DoctorAuth {
	return &DoctorAuth{secret: []byte(secret)}
}

func (a *DoctorAuth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid session token",
			})
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid session token",
			})
			return
		}

		if id, err := uuid.Parse(claims.Subject); err == nil {
			c.Set(ContextDoctorID, id)
		}
		c.Next()
	}
}
