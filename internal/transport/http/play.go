package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// PlayHandler serves the unauthenticated player endpoints. The player id
// returned by Join is the only credential.
type PlayHandler struct {
	service *app.QuizService
}

func NewPlayHandler(service *app.QuizService) *PlayHandler {
	return &PlayHandler{service: service}
}

type joinRequest struct {
	Name string `json:"name"`
}

func (h *PlayHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "Invalid request body"))
		return
	}
	playerID, err := h.service.Join(c.Request.Context(), c.Param("sessionid"), req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playerId": playerID})
}

func (h *PlayHandler) Status(c *gin.Context) {
	started, err := h.service.PlayerStatus(c.Request.Context(), c.Param("playerid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": started})
}

func (h *PlayHandler) Question(c *gin.Context) {
	question, err := h.service.Question(c.Request.Context(), c.Param("playerid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

// Reveal returns the correct answers and closes the player's answer window.
func (h *PlayHandler) Reveal(c *gin.Context) {
	ids, err := h.service.RevealAnswers(c.Request.Context(), c.Param("playerid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answerIds": ids})
}

type submitRequest struct {
	Answers *[]domain.ID `json:"answers"`
}

func (h *PlayHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Answers == nil {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "answers must be an array of answer ids"))
		return
	}
	if err := h.service.Submit(c.Request.Context(), c.Param("playerid"), *req.Answers); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *PlayHandler) Answers(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "Invalid question index"))
		return
	}
	ids, err := h.service.AnswersFor(c.Request.Context(), c.Param("playerid"), idx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": ids})
}

func (h *PlayHandler) Results(c *gin.Context) {
	records, err := h.service.FinalResults(c.Request.Context(), c.Param("playerid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
