package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// AdminHandler serves the owner-facing game and session endpoints.
type AdminHandler struct {
	service *app.QuizService
}

func NewAdminHandler(service *app.QuizService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) ListGames(c *gin.Context) {
	games, err := h.service.ListGames(c.Request.Context(), adminEmail(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

type replaceGamesRequest struct {
	Games json.RawMessage `json:"games"`
}

func (h *AdminHandler) ReplaceGames(c *gin.Context) {
	var req replaceGamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "Invalid request body"))
		return
	}
	var games []domain.Game
	if len(req.Games) == 0 || req.Games[0] != '[' {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "games must be an array"))
		return
	}
	if err := json.Unmarshal(req.Games, &games); err != nil {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "Invalid game: "+err.Error()))
		return
	}
	if err := h.service.ReplaceGames(c.Request.Context(), adminEmail(c), games); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type mutateRequest struct {
	MutationType string `json:"mutationType"`
}

func (h *AdminHandler) Mutate(c *gin.Context) {
	var req mutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domain.InputError(domain.CodeInvalidInput, "Invalid request body"))
		return
	}
	res, err := h.service.Mutate(c.Request.Context(), adminEmail(c), domain.ID(c.Param("gameid")), req.MutationType)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AdminHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	gameID := domain.ID(c.Param("gameid"))
	if err := h.service.AssertOwnsGame(ctx, adminEmail(c), gameID); err != nil {
		abortWithError(c, err)
		return
	}
	sessions, err := h.service.History(ctx, gameID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *AdminHandler) Status(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": status})
}

func (h *AdminHandler) Results(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	results, err := h.service.Results(c.Request.Context(), sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *AdminHandler) Report(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	report, err := h.service.Report(c.Request.Context(), sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) ownedSession(c *gin.Context) (string, bool) {
	sessionID := c.Param("sessionid")
	if err := h.service.AssertOwnsSession(c.Request.Context(), adminEmail(c), sessionID); err != nil {
		abortWithError(c, err)
		return "", false
	}
	return sessionID, true
}
