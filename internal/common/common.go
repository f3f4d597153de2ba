package common

import (
	"time"

	"teampulse-backend/internal/config"
	"teampulse-backend/internal/summary"
	"teampulse-backend/internal/survey"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SubmissionClaims is the payload of the short-lived credential a participant
// receives for a redeemed code. It binds the eventual submission to exactly
// one code and therefore one (campaign, team leader) pair.
type SubmissionClaims struct {
	CodeID       string `json:"code_id"`
	CampaignID   string `json:"campaign_id"`
	TeamLeaderID string `json:"team_leader_id"`
	jwt.RegisteredClaims
}

type JWTIssuer interface {
	GenerateToken(codeID, campaignID, teamLeaderID string) (token string, expiresAt time.Time, err error)
	Middleware() echo.MiddlewareFunc
	GetSubmissionClaims(c echo.Context) (*SubmissionClaims, error)
}

type ServerState struct {
	Echo       *echo.Echo
	Config     *config.Config
	DB         *gorm.DB
	JwtIssuer  JWTIssuer
	Questions  survey.QuestionSet
	Summarizer summary.Summarizer
}
