package handler

import (
	"fmt"
	"net/http"
	"strings"

	"mapguess-server/shared/middleware"
	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *PuzzleHandler) getCurrentPuzzle(c *gin.Context) {
	h.respondPuzzle(c, models.LatestPuzzleRef)
}

func (h *PuzzleHandler) getPuzzle(c *gin.Context) {
	h.respondPuzzle(c, c.Param("id"))
}

func (h *PuzzleHandler) respondPuzzle(c *gin.Context, ref string) {
	puzzle, err := h.catalog.Resolve(c.Request.Context(), ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewPuzzleResponse(puzzle))
}

func (h *PuzzleHandler) submitGuess(c *gin.Context) {
	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	resp, err := h.gameplay.SubmitGuess(c.Request.Context(), middleware.PlayerID(c), c.Param("id"), req.Guess)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PuzzleHandler) requestHint(c *gin.Context) {
	resp, err := h.gameplay.RequestHint(c.Request.Context(), middleware.PlayerID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PuzzleHandler) revealedHints(c *gin.Context) {
	resp, err := h.gameplay.RevealedHints(c.Request.Context(), middleware.PlayerID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PuzzleHandler) attempts(c *gin.Context) {
	resp, err := h.gameplay.Attempts(c.Request.Context(), middleware.PlayerID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PuzzleHandler) resetGame(c *gin.Context) {
	playerID := middleware.PlayerID(c)
	puzzleID, err := h.gameplay.Reset(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.logger.Info("Game reset", zap.String("playerID", playerID), zap.String("puzzleID", puzzleID))
	c.JSON(http.StatusOK, resetResponse{
		Success: true,
		Message: fmt.Sprintf("Game reset for puzzle %s", puzzleID),
	})
}

// randomEndless выдает случайный пазл endless-пула. exclude - id через запятую.
func (h *PuzzleHandler) randomEndless(c *gin.Context) {
	var exclude []string
	for _, id := range strings.Split(c.Query("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclude = append(exclude, id)
		}
	}

	ctx := c.Request.Context()
	id, err := h.index.RandomEndlessPuzzleID(ctx, exclude)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	puzzle, err := h.catalog.Resolve(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	idx, err := h.index.ListAll(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, endlessPuzzleResponse{
		PuzzleResponse: models.NewPuzzleResponse(puzzle),
		PoolSize:       len(idx.EndlessPool),
	})
}
