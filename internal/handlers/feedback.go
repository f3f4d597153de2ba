package handlers

import (
	"errors"
	"net/http"
	"time"

	"teampulse-backend/internal/common"
	"teampulse-backend/internal/config"
	"teampulse-backend/internal/models"
	"teampulse-backend/internal/survey"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedbackSubmitted counts successfully persisted feedback responses.
// Registered by the server alongside the echo request metrics.
var FeedbackSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "feedback_submitted_total",
	Help: "Number of feedback responses persisted",
})

// PublicHandler serves the participant-facing endpoints: redeeming an access
// code and submitting the questionnaire it unlocks.
type PublicHandler struct {
	common.ServerState
}

func NewPublicHandler(db *gorm.DB, cfg *config.Config, jwt common.JWTIssuer, questions survey.QuestionSet) *PublicHandler {
	return &PublicHandler{
		ServerState: common.ServerState{
			DB:        db,
			Config:    cfg,
			JwtIssuer: jwt,
			Questions: questions,
		},
	}
}

type RedeemRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemResponse struct {
	Token      string             `json:"token"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Campaign   models.Campaign    `json:"campaign"`
	TeamLeader models.TeamLeader  `json:"team_leader"`
	Questions  survey.QuestionSet `json:"questions"`
}

// RedeemCode exchanges a valid unused access code for a short-lived signed
// credential. Nothing is mutated here; the code is consumed only when the
// questionnaire is actually submitted.
func (h *PublicHandler) RedeemCode(c echo.Context) error {
	req := new(RedeemRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var code models.Code
	result := h.DB.Where("code = ?", NormalizeCode(req.Code)).First(&code)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Code not found")
	}
	if result.Error != nil {
		c.Logger().Errorf("Failed to look up code: %v", result.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to redeem code")
	}

	if code.Used {
		return echo.NewHTTPError(http.StatusConflict, "Code has already been used")
	}

	var campaign models.Campaign
	if err := h.DB.Where("id = ?", code.CampaignID).First(&campaign).Error; err != nil {
		c.Logger().Errorf("Code %s references missing campaign %s: %v", code.ID, code.CampaignID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to redeem code")
	}

	var leader models.TeamLeader
	if err := h.DB.Where("id = ?", code.TeamLeaderID).First(&leader).Error; err != nil {
		c.Logger().Errorf("Code %s references missing team leader %s: %v", code.ID, code.TeamLeaderID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to redeem code")
	}

	token, expiresAt, err := h.JwtIssuer.GenerateToken(code.ID, code.CampaignID, code.TeamLeaderID)
	if err != nil {
		c.Logger().Errorf("Failed to generate credential: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to redeem code")
	}

	return c.JSON(http.StatusOK, RedeemResponse{
		Token:      token,
		ExpiresAt:  expiresAt,
		Campaign:   campaign,
		TeamLeader: leader,
		Questions:  h.Questions,
	})
}

type SubmitFeedbackRequest struct {
	Ratings     map[string]int `json:"ratings" validate:"required"`
	Strengths   string         `json:"strengths"`
	Development string         `json:"development"`
	Other       string         `json:"other"`
}

// SubmitFeedback persists a questionnaire and consumes its access code in a
// single transaction. Two requests racing on the same credential leave
// exactly one feedback row behind: the code row is read under a lock and the
// used flag is flipped with a guarded update.
func (h *PublicHandler) SubmitFeedback(c echo.Context) error {
	claims, err := h.JwtIssuer.GetSubmissionClaims(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credential")
	}

	req := new(SubmitFeedbackRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ratings := h.Questions.ValidRatings(req.Ratings)
	if len(ratings) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No valid ratings submitted")
	}
	overall, _ := survey.MeanRatings(ratings)

	feedback := &models.Feedback{
		CampaignID:   claims.CampaignID,
		TeamLeaderID: claims.TeamLeaderID,
		Ratings:      ratings,
		Overall:      overall,
		Strengths:    req.Strengths,
		Development:  req.Development,
		Other:        req.Other,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite has no FOR UPDATE and serializes writers on its own;
		// on Postgres the row lock turns check-then-mark into a
		// critical section.
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var code models.Code
		if err := query.Where("id = ?", claims.CodeID).First(&code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Code not found")
			}
			return err
		}

		if code.Used {
			return echo.NewHTTPError(http.StatusConflict, "Code has already been used")
		}

		if err := tx.Create(feedback).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Code{}).
			Where("id = ? AND used = ?", code.ID, false).
			Updates(map[string]interface{}{"used": true, "used_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			// Lost the race after all; roll everything back.
			return echo.NewHTTPError(http.StatusConflict, "Code has already been used")
		}

		return nil
	})

	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		c.Logger().Errorf("Failed to submit feedback: %v", err)
		CaptureError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to submit feedback")
	}

	FeedbackSubmitted.Inc()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Feedback submitted",
		"overall": feedback.Overall,
	})
}
