package grpchub

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ConnectorClaims is the minimal JWT payload a connector presents in its
// hello envelope: which tenant it's authorized to serve. The core never
// issues these tokens — that's a control-plane concern — it only
// validates and consumes the TenantId claim.
//
// Grounded on services/plugins/internal/auth/jwt.go's Claims shape.
type ConnectorClaims struct {
	TenantId string `json:"tenantId"`
	jwt.RegisteredClaims
}

// ValidateConnectorToken verifies tokenString against secretKey and
// returns its claims. Used by Server to authenticate a connector's hello
// envelope before admitting it to the tenant's connector pool.
func ValidateConnectorToken(tokenString string, secretKey []byte) (*ConnectorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ConnectorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("grpchub: parse connector token: %w", err)
	}

	claims, ok := token.Claims.(*ConnectorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("grpchub: invalid connector token")
	}
	if claims.TenantId == "" {
		return nil, fmt.Errorf("grpchub: connector token missing tenant claim")
	}
	return claims, nil
}
