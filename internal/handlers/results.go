package handlers

import (
	"errors"
	"net/http"

	"teampulse-backend/internal/models"
	"teampulse-backend/internal/survey"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const commentsWithheldNotice = "Comments are hidden until at least 3 responses exist, to protect anonymity."

// OverviewRow is one active team leader's rollup within a campaign. The
// count and mean come straight from the database aggregation.
type OverviewRow struct {
	TeamLeaderID string   `json:"team_leader_id"`
	Name         string   `json:"name"`
	Responses    int64    `json:"responses"`
	AverageScore *float64 `json:"average_score"`
}

// CommentsPayload holds the gated free-text fields, non-empty ones only.
type CommentsPayload struct {
	Strengths   []string `json:"strengths"`
	Development []string `json:"development"`
	Other       []string `json:"other"`
}

// DetailResponse is the full per-(campaign, team leader) result set.
type DetailResponse struct {
	Campaign         models.Campaign     `json:"campaign"`
	TeamLeader       models.TeamLeader   `json:"team_leader"`
	Responses        int64               `json:"responses"`
	OverallAverage   *float64            `json:"overall_average"`
	QuestionAverages map[string]*float64 `json:"question_averages"`
	CategoryAverages map[string]*float64 `json:"category_averages"`
	Comments         *CommentsPayload    `json:"comments"`
	CommentsNotice   string              `json:"comments_notice,omitempty"`
}

func (h *AdminHandler) getCampaign(c echo.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := h.DB.Where("id = ?", id).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Campaign not found")
		}
		c.Logger().Errorf("Failed to load campaign: %v", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load campaign")
	}
	return &campaign, nil
}

func (h *AdminHandler) getTeamLeader(c echo.Context, id string) (*models.TeamLeader, error) {
	var leader models.TeamLeader
	if err := h.DB.Where("id = ?", id).First(&leader).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Team leader not found")
		}
		c.Logger().Errorf("Failed to load team leader: %v", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load team leader")
	}
	return &leader, nil
}

// GetOverview returns response counts and mean overall scores per active
// team leader for one campaign, aggregated in SQL.
func (h *AdminHandler) GetOverview(c echo.Context) error {
	campaign, err := h.getCampaign(c, c.Param("id"))
	if err != nil {
		return err
	}

	var rows []OverviewRow
	result := h.DB.Raw(`
		SELECT tl.id AS team_leader_id, tl.name AS name,
		       COUNT(f.id) AS responses, AVG(f.overall) AS average_score
		FROM team_leaders tl
		LEFT JOIN feedbacks f ON f.team_leader_id = tl.id AND f.campaign_id = ?
		WHERE tl.active = ?
		GROUP BY tl.id, tl.name
		ORDER BY tl.name ASC
	`, campaign.ID, true).Scan(&rows)
	if result.Error != nil {
		c.Logger().Errorf("Failed to aggregate overview: %v", result.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load overview")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"campaign":     campaign,
		"team_leaders": rows,
	})
}

// leaderResults aggregates one (campaign, team leader) pair and applies the
// visibility gate to the free-text fields.
func (h *AdminHandler) leaderResults(campaignID, teamLeaderID string) (*DetailResponse, error) {
	var feedbacks []models.Feedback
	if err := h.DB.Where("campaign_id = ? AND team_leader_id = ?", campaignID, teamLeaderID).
		Order("created_at ASC").Find(&feedbacks).Error; err != nil {
		return nil, err
	}

	responses := int64(len(feedbacks))

	var overall *float64
	if responses > 0 {
		sum := 0.0
		for _, f := range feedbacks {
			sum += f.Overall
		}
		avg := sum / float64(responses)
		overall = &avg
	}

	ratingMaps := make([]map[string]int, 0, len(feedbacks))
	for _, f := range feedbacks {
		ratingMaps = append(ratingMaps, f.Ratings)
	}
	questionAvgs := h.Questions.QuestionAverages(ratingMaps)

	detail := &DetailResponse{
		Responses:        responses,
		OverallAverage:   overall,
		QuestionAverages: questionAvgs,
		CategoryAverages: h.Questions.CategoryAverages(questionAvgs),
	}

	if survey.CommentsVisible(responses) {
		comments := &CommentsPayload{
			Strengths:   []string{},
			Development: []string{},
			Other:       []string{},
		}
		for _, f := range feedbacks {
			if f.Strengths != "" {
				comments.Strengths = append(comments.Strengths, f.Strengths)
			}
			if f.Development != "" {
				comments.Development = append(comments.Development, f.Development)
			}
			if f.Other != "" {
				comments.Other = append(comments.Other, f.Other)
			}
		}
		detail.Comments = comments
	} else {
		detail.CommentsNotice = commentsWithheldNotice
	}

	return detail, nil
}

// GetDetail returns per-question and per-category averages plus gated
// comments for one team leader in one campaign.
func (h *AdminHandler) GetDetail(c echo.Context) error {
	campaign, err := h.getCampaign(c, c.Param("id"))
	if err != nil {
		return err
	}
	leader, err := h.getTeamLeader(c, c.Param("leaderID"))
	if err != nil {
		return err
	}

	detail, err := h.leaderResults(campaign.ID, leader.ID)
	if err != nil {
		c.Logger().Errorf("Failed to aggregate detail: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load results")
	}
	detail.Campaign = *campaign
	detail.TeamLeader = *leader

	return c.JSON(http.StatusOK, detail)
}

// DeleteFeedback bulk-removes all responses for a (campaign, team leader)
// pair. Consumed codes stay consumed.
func (h *AdminHandler) DeleteFeedback(c echo.Context) error {
	campaign, err := h.getCampaign(c, c.Param("id"))
	if err != nil {
		return err
	}
	leader, err := h.getTeamLeader(c, c.Param("leaderID"))
	if err != nil {
		return err
	}

	result := h.DB.Where("campaign_id = ? AND team_leader_id = ?", campaign.ID, leader.ID).
		Delete(&models.Feedback{})
	if result.Error != nil {
		c.Logger().Errorf("Failed to delete feedback: %v", result.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete feedback")
	}

	return c.JSON(http.StatusOK, map[string]int64{"deleted": result.RowsAffected})
}

// CycleSide is one campaign's aggregate within a comparison.
type CycleSide struct {
	Campaign         models.Campaign     `json:"campaign"`
	Responses        int64               `json:"responses"`
	OverallAverage   *float64            `json:"overall_average"`
	CategoryAverages map[string]*float64 `json:"category_averages"`
}

// CompareCycles aggregates two campaigns for the same team leader and
// reports to-minus-from deltas. A side without data yields nil deltas, not
// zeros.
func (h *AdminHandler) CompareCycles(c echo.Context) error {
	if c.QueryParam("team_leader_id") == "" || c.QueryParam("from") == "" || c.QueryParam("to") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "team_leader_id, from and to are required")
	}

	leader, err := h.getTeamLeader(c, c.QueryParam("team_leader_id"))
	if err != nil {
		return err
	}
	from, err := h.getCampaign(c, c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := h.getCampaign(c, c.QueryParam("to"))
	if err != nil {
		return err
	}

	fromDetail, err := h.leaderResults(from.ID, leader.ID)
	if err != nil {
		c.Logger().Errorf("Failed to aggregate from-cycle: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compare cycles")
	}
	toDetail, err := h.leaderResults(to.ID, leader.ID)
	if err != nil {
		c.Logger().Errorf("Failed to aggregate to-cycle: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compare cycles")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"team_leader": leader,
		"from": CycleSide{
			Campaign:         *from,
			Responses:        fromDetail.Responses,
			OverallAverage:   fromDetail.OverallAverage,
			CategoryAverages: fromDetail.CategoryAverages,
		},
		"to": CycleSide{
			Campaign:         *to,
			Responses:        toDetail.Responses,
			OverallAverage:   toDetail.OverallAverage,
			CategoryAverages: toDetail.CategoryAverages,
		},
		"deltas": map[string]interface{}{
			"overall":    survey.Delta(fromDetail.OverallAverage, toDetail.OverallAverage),
			"categories": survey.Deltas(fromDetail.CategoryAverages, toDetail.CategoryAverages),
		},
	})
}

// GetAISummary returns a thematic summary of the gated comments. The
// feature is best-effort: without an API key it reports itself disabled
// instead of failing.
func (h *AdminHandler) GetAISummary(c echo.Context) error {
	campaign, err := h.getCampaign(c, c.Param("id"))
	if err != nil {
		return err
	}
	leader, err := h.getTeamLeader(c, c.Param("leaderID"))
	if err != nil {
		return err
	}

	detail, err := h.leaderResults(campaign.ID, leader.ID)
	if err != nil {
		c.Logger().Errorf("Failed to aggregate for summary: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load results")
	}

	if detail.Comments == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"enabled": h.Summarizer != nil,
			"summary": nil,
			"notice":  commentsWithheldNotice,
		})
	}

	if h.Summarizer == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"enabled": false,
			"summary": nil,
			"notice":  "AI summaries are not configured on this server.",
		})
	}

	comments := make([]string, 0,
		len(detail.Comments.Strengths)+len(detail.Comments.Development)+len(detail.Comments.Other))
	comments = append(comments, detail.Comments.Strengths...)
	comments = append(comments, detail.Comments.Development...)
	comments = append(comments, detail.Comments.Other...)

	if len(comments) == 0 {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"enabled": true,
			"summary": nil,
			"notice":  "No written comments to summarize.",
		})
	}

	text, err := h.Summarizer.Summarize(c.Request().Context(), leader.Name, comments)
	if err != nil {
		c.Logger().Errorf("Summary generation failed: %v", err)
		CaptureError(err)
		return echo.NewHTTPError(http.StatusBadGateway, "Summary generation failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"enabled": true,
		"summary": text,
	})
}
