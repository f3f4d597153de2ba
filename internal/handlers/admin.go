package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"teampulse-backend/internal/common"
	"teampulse-backend/internal/config"
	"teampulse-backend/internal/models"
	"teampulse-backend/internal/summary"
	"teampulse-backend/internal/survey"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// AdminPasswordHeader carries the shared admin secret.
const AdminPasswordHeader = "X-Admin-Password"

// AdminAuthMiddleware guards the admin group with a constant-time comparison
// against the configured password. An empty configured password keeps the
// whole group locked rather than open.
func AdminAuthMiddleware(password string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get(AdminPasswordHeader)
			if password == "" || provided == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(password)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			return next(c)
		}
	}
}

// AdminHandler serves campaign, roster, code and results management.
type AdminHandler struct {
	common.ServerState
}

func NewAdminHandler(db *gorm.DB, cfg *config.Config, questions survey.QuestionSet, summarizer summary.Summarizer) *AdminHandler {
	return &AdminHandler{
		ServerState: common.ServerState{
			DB:         db,
			Config:     cfg,
			Questions:  questions,
			Summarizer: summarizer,
		},
	}
}

// --- Campaigns ---

func (h *AdminHandler) ListCampaigns(c echo.Context) error {
	var campaigns []models.Campaign
	if err := h.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		c.Logger().Errorf("Failed to list campaigns: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list campaigns")
	}
	return c.JSON(http.StatusOK, campaigns)
}

type CreateCampaignRequest struct {
	ID    string `json:"id" validate:"required,max=64"`
	Label string `json:"label" validate:"required"`
}

func (h *AdminHandler) CreateCampaign(c echo.Context) error {
	req := new(CreateCampaignRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	campaign := &models.Campaign{ID: req.ID, Label: req.Label}
	result := h.DB.Create(campaign)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return echo.NewHTTPError(http.StatusConflict, "Campaign with this id already exists")
	}
	if result.Error != nil {
		c.Logger().Errorf("Failed to create campaign: %v", result.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create campaign")
	}

	return c.JSON(http.StatusCreated, campaign)
}

type UpdateCampaignRequest struct {
	Label string `json:"label" validate:"required"`
}

// UpdateCampaign changes the display label. The id is immutable; codes and
// feedback reference it.
func (h *AdminHandler) UpdateCampaign(c echo.Context) error {
	req := new(UpdateCampaignRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var campaign models.Campaign
	if err := h.DB.Where("id = ?", c.Param("id")).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		c.Logger().Errorf("Failed to load campaign: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update campaign")
	}

	campaign.Label = req.Label
	if err := h.DB.Save(&campaign).Error; err != nil {
		c.Logger().Errorf("Failed to update campaign: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update campaign")
	}

	return c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign removes a campaign with its codes and feedback in one
// transaction. Done explicitly rather than relying on FK cascades so the
// behavior is identical on Postgres and SQLite.
func (h *AdminHandler) DeleteCampaign(c echo.Context) error {
	campaignID := c.Param("id")

	var campaign models.Campaign
	if err := h.DB.Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		c.Logger().Errorf("Failed to load campaign: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete campaign")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", campaignID).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", campaignID).Delete(&models.Code{}).Error; err != nil {
			return err
		}
		return tx.Delete(&campaign).Error
	})
	if err != nil {
		c.Logger().Errorf("Failed to delete campaign %s: %v", campaignID, err)
		CaptureError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete campaign")
	}

	return c.NoContent(http.StatusNoContent)
}

// --- Team leaders ---

func (h *AdminHandler) ListTeamLeaders(c echo.Context) error {
	query := h.DB.Order("name ASC")
	if c.QueryParam("all") != "true" {
		query = query.Where("active = ?", true)
	}

	var leaders []models.TeamLeader
	if err := query.Find(&leaders).Error; err != nil {
		c.Logger().Errorf("Failed to list team leaders: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list team leaders")
	}
	return c.JSON(http.StatusOK, leaders)
}

type UpsertTeamLeaderRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpsertTeamLeader creates a leader or reactivates a previously deactivated
// one with the same name. Names are globally unique; re-adding never
// duplicates.
func (h *AdminHandler) UpsertTeamLeader(c echo.Context) error {
	req := new(UpsertTeamLeaderRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var leader models.TeamLeader
	result := h.DB.Where("name = ?", req.Name).First(&leader)
	if result.Error == nil {
		if leader.Active {
			return c.JSON(http.StatusOK, leader)
		}
		leader.Active = true
		if err := h.DB.Save(&leader).Error; err != nil {
			c.Logger().Errorf("Failed to reactivate team leader: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save team leader")
		}
		return c.JSON(http.StatusOK, leader)
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		c.Logger().Errorf("Failed to look up team leader: %v", result.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save team leader")
	}

	leader = models.TeamLeader{Name: req.Name, Active: true}
	if err := h.DB.Create(&leader).Error; err != nil {
		c.Logger().Errorf("Failed to create team leader: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save team leader")
	}

	return c.JSON(http.StatusCreated, leader)
}

// DeactivateTeamLeader soft-deletes: the leader drops out of rosters and
// code generation while historical feedback stays intact.
func (h *AdminHandler) DeactivateTeamLeader(c echo.Context) error {
	var leader models.TeamLeader
	if err := h.DB.Where("id = ?", c.Param("id")).First(&leader).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Team leader not found")
		}
		c.Logger().Errorf("Failed to load team leader: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to deactivate team leader")
	}

	leader.Active = false
	if err := h.DB.Save(&leader).Error; err != nil {
		c.Logger().Errorf("Failed to deactivate team leader: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to deactivate team leader")
	}

	return c.JSON(http.StatusOK, leader)
}

// --- Codes ---

type GenerateCodesRequest struct {
	CampaignID   string `json:"campaign_id" validate:"required"`
	TeamLeaderID string `json:"team_leader_id" validate:"required"`
	Count        int    `json:"count" validate:"required,min=1,max=500"`
}

// GenerateCodes creates a batch of fresh single-use codes in one
// transaction: exactly Count codes come back or none do. Random collisions
// with existing codes are retried per token, bounded by maxCodeAttempts.
func (h *AdminHandler) GenerateCodes(c echo.Context) error {
	req := new(GenerateCodesRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var campaign models.Campaign
	if err := h.DB.Where("id = ?", req.CampaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		c.Logger().Errorf("Failed to load campaign: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate codes")
	}

	var leader models.TeamLeader
	if err := h.DB.Where("id = ?", req.TeamLeaderID).First(&leader).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Team leader not found")
		}
		c.Logger().Errorf("Failed to load team leader: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate codes")
	}
	if !leader.Active {
		return echo.NewHTTPError(http.StatusBadRequest, "Team leader is inactive")
	}

	codes := make([]string, 0, req.Count)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < req.Count; i++ {
			created := false
			for attempt := 0; attempt < maxCodeAttempts; attempt++ {
				token, err := newCodeToken()
				if err != nil {
					return err
				}

				code := &models.Code{
					Code:         token,
					CampaignID:   req.CampaignID,
					TeamLeaderID: req.TeamLeaderID,
				}
				// The nested transaction puts each insert behind a
				// savepoint: on Postgres a unique violation would
				// otherwise abort the whole batch transaction and
				// turn every retry into a 25P02 error.
				err = tx.Transaction(func(tx *gorm.DB) error {
					return tx.Create(code).Error
				})
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Collision with an existing token; draw again.
					continue
				}
				if err != nil {
					return err
				}

				codes = append(codes, token)
				created = true
				break
			}
			if !created {
				return errors.New("exhausted code generation attempts")
			}
		}
		return nil
	})
	if err != nil {
		c.Logger().Errorf("Failed to generate codes: %v", err)
		CaptureError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate codes")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"campaign_id":    req.CampaignID,
		"team_leader_id": req.TeamLeaderID,
		"codes":          codes,
	})
}

func (h *AdminHandler) ListCodes(c echo.Context) error {
	campaignID := c.QueryParam("campaign_id")
	if campaignID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "campaign_id is required")
	}

	query := h.DB.Where("campaign_id = ?", campaignID).Order("created_at ASC")
	if leaderID := c.QueryParam("team_leader_id"); leaderID != "" {
		query = query.Where("team_leader_id = ?", leaderID)
	}

	var codes []models.Code
	if err := query.Find(&codes).Error; err != nil {
		c.Logger().Errorf("Failed to list codes: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list codes")
	}

	return c.JSON(http.StatusOK, codes)
}
