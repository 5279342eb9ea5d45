package jwthandling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information a participant token encodes
type ParticipantUserClaims struct {
	InstanceID     string            `json:"instance_id,omitempty"`
	FullyConsented bool              `json:"fully_consented,omitempty"`
	Payload        map[string]string `json:"payload,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewParticipantUserToken(
	expiresIn time.Duration,
	accountID string,
	instanceID string,
	fullyConsented bool,
	payload map[string]string,
	secretKey string,
) (tokenString string, err error) {
	claims := ParticipantUserClaims{
		instanceID,
		fullyConsented,
		payload,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   accountID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateParticipantUserToken(tokenString string, secretKey string) (claims *ParticipantUserClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &ParticipantUserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*ParticipantUserClaims)
	valid = valid && token.Valid
	return
}
