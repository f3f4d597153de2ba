package handlers

import (
	"fmt"
	"time"

	"teampulse-backend/internal/common"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// CredentialTTL is how long a redeemed code's credential stays usable.
// Redemption itself is side-effect free, so an expired credential just means
// redeeming the (still unused) code again.
const CredentialTTL = 2 * time.Hour

type JwtAuth struct {
	Secret string
}

func NewJwtAuth(secret string) *JwtAuth {
	return &JwtAuth{Secret: secret}
}

func (j *JwtAuth) GenerateToken(codeID, campaignID, teamLeaderID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(CredentialTTL)

	claims := &common.SubmissionClaims{
		CodeID:       codeID,
		CampaignID:   campaignID,
		TeamLeaderID: teamLeaderID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing credential: %w", err)
	}

	return signed, expiresAt, nil
}

func (j *JwtAuth) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(common.SubmissionClaims)
		},
		SigningKey: []byte(j.Secret),
	})
}

func (j *JwtAuth) GetSubmissionClaims(c echo.Context) (*common.SubmissionClaims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, fmt.Errorf("missing credential in request context")
	}

	claims, ok := token.Claims.(*common.SubmissionClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type in credential")
	}

	if claims.CodeID == "" || claims.CampaignID == "" || claims.TeamLeaderID == "" {
		return nil, fmt.Errorf("credential is missing submission claims")
	}

	return claims, nil
}
