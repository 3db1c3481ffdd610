package handler

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"mapguess-server/internal/service"
	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminPasswordHeader = "X-Admin-Password"

// AdminPasswordMiddleware проверяет X-Admin-Password, если пароль задан.
// Без пароля админка рассчитывает на защиту на уровне шлюза.
func (h *PuzzleHandler) AdminPasswordMiddleware() gin.HandlerFunc {
	expected := []byte(h.opts.AdminPassword)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		provided := []byte(c.GetHeader(adminPasswordHeader))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			adminAuthFailuresTotal.Inc()
			h.logger.Warn("Admin request rejected", zap.String("path", c.FullPath()), zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Detail: "Invalid admin password"})
			return
		}
		c.Next()
	}
}

func (h *PuzzleHandler) createPuzzle(c *gin.Context) {
	var req createPuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	puzzle, err := h.authoring.CreatePuzzle(c.Request.Context(), service.CreatePuzzleInput{
		ID:                  req.ID,
		ImageURL:            req.ImageURL,
		Answer:              req.Answer,
		Hints:               req.Hints,
		Synonyms:            req.Synonyms,
		MaxGuesses:          req.MaxGuesses,
		SimilarityThreshold: req.SimilarityThreshold,
		SimilarityMode:      req.SimilarityMode,
		SourceText:          req.SourceText,
		SourceURL:           req.SourceURL,
		ScheduledDate:       req.ScheduledDate,
		InEndlessPool:       req.InEndlessPool,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createPuzzleResponse{
		Success:  true,
		PuzzleID: puzzle.ID,
		ImageURL: puzzle.ImageURL,
		Variants: len(puzzle.AnswerVariants),
		Message:  fmt.Sprintf("Puzzle created successfully for %s", puzzle.ID),
	})
}

func (h *PuzzleHandler) generateSynonyms(c *gin.Context) {
	var req generateSynonymsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	synonyms, err := h.authoring.GenerateSynonyms(c.Request.Context(), req.Answer, req.Count)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synonyms": synonyms})
}

func (h *PuzzleHandler) listAllPuzzles(c *gin.Context) {
	ctx := c.Request.Context()
	idx, err := h.index.ListAll(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	activeID, err := h.catalog.ActivePuzzleID(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	puzzles := append([]models.PuzzleIndexEntry{}, idx.Puzzles...)
	sort.Slice(puzzles, func(i, j int) bool { return puzzles[i].ID > puzzles[j].ID })

	c.JSON(http.StatusOK, gin.H{
		"puzzles":        puzzles,
		"dailySchedule":  idx.DailySchedule,
		"endlessPool":    idx.EndlessPool,
		"activePuzzleId": models.OptionalString(activeID),
	})
}

func (h *PuzzleHandler) calendar(c *gin.Context) {
	year, errYear := strconv.Atoi(c.Param("year"))
	month, errMonth := strconv.Atoi(c.Param("month"))
	if errYear != nil || errMonth != nil {
		handleServiceError(c, fmt.Errorf("year and month must be integers: %w", models.ErrInvalidInput))
		return
	}

	schedule, err := h.index.PuzzlesForMonth(c.Request.Context(), year, month)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendarResponse{Year: year, Month: month, Schedule: schedule})
}

func (h *PuzzleHandler) schedulePuzzle(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	if req.Date != nil && *req.Date == "" {
		req.Date = nil
	}

	puzzle, err := h.index.Schedule(c.Request.Context(), c.Param("id"), req.Date)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, puzzle.IndexEntry())
}

func (h *PuzzleHandler) toggleEndlessPool(c *gin.Context) {
	var req endlessPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	puzzle, err := h.index.ToggleEndlessPool(c.Request.Context(), c.Param("id"), *req.InEndlessPool)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, puzzle.IndexEntry())
}

func (h *PuzzleHandler) getActivePuzzle(c *gin.Context) {
	ctx := c.Request.Context()
	activeID, err := h.catalog.ActivePuzzleID(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, activePuzzleResponse{
		ActivePuzzleID:    models.OptionalString(activeID),
		EffectivePuzzleID: h.catalog.ResolveID(ctx, models.LatestPuzzleRef),
		TodayPuzzleID:     h.catalog.TodayPuzzleID(),
	})
}

// setActivePuzzle задает override; пустой puzzleId сбрасывает его.
func (h *PuzzleHandler) setActivePuzzle(c *gin.Context) {
	var req activePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.catalog.SetActivePuzzleID(ctx, req.PuzzleID); err != nil {
		handleServiceError(c, err)
		return
	}
	activeID, err := h.catalog.ActivePuzzleID(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, activePuzzleResponse{
		ActivePuzzleID:    models.OptionalString(activeID),
		EffectivePuzzleID: h.catalog.ResolveID(ctx, models.LatestPuzzleRef),
		TodayPuzzleID:     h.catalog.TodayPuzzleID(),
	})
}

func (h *PuzzleHandler) reindex(c *gin.Context) {
	report, err := h.index.Reconcile(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
