package ui

import (
	"log"
	"net/http"
	"strings"

	"nyassess/app"
	"nyassess/domain/assessment"
	"nyassess/internal/errors"

	"github.com/gin-gonic/gin"
)

// AssessmentHandler maps query parameters onto the ingestion calls.
type AssessmentHandler struct {
	api AssessmentAPI
}

func NewAssessmentHandler(api AssessmentAPI) *AssessmentHandler {
	return &AssessmentHandler{api: api}
}

// HandleAssessments serves GET /api/assessments.
//
//	?subject=ELA&level=city             aggregate payload
//	?subject=ELA&level=school&names=1   {"names": [...]}
//	?subject=ELA&level=school&school=X  one school's payload; {} without a school
func (h *AssessmentHandler) HandleAssessments(c *gin.Context) {
	ctx := c.Request.Context()
	subject := c.DefaultQuery("subject", string(assessment.SubjectELA))
	level := strings.ToLower(c.DefaultQuery("level", string(assessment.LevelCity)))

	if level == string(assessment.LevelSchool) {
		if c.Query("names") != "" {
			names, err := h.api.SchoolNames(ctx, subject)
			if err != nil {
				h.fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"names": names})
			return
		}

		school := c.Query("school")
		if school == "" || school == "All" {
			c.JSON(http.StatusOK, assessment.Payload{})
			return
		}
		payload, err := h.api.LoadSchool(ctx, subject, school)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, payload)
		return
	}

	payload, err := h.api.LoadAggregate(ctx, subject, level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// HandleSummary serves GET /api/assessments/summary with per-year weighted
// figures for one label.
func (h *AssessmentHandler) HandleSummary(c *gin.Context) {
	req := app.SummaryRequest{
		Subject:  c.DefaultQuery("subject", string(assessment.SubjectELA)),
		Level:    c.DefaultQuery("level", string(assessment.LevelCity)),
		School:   c.Query("school"),
		Label:    c.Query("label"),
		Category: c.Query("category"),
		Grade:    c.Query("grade"),
	}

	years, err := h.api.Summary(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"years": years,
		"count": len(years),
	})
}

// HandleHealth serves GET /healthz.
func (h *AssessmentHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"cachedEntries": h.api.CachedEntries(),
	})
}

func (h *AssessmentHandler) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.RequestURI(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
