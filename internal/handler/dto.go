package handler

import "mapguess-server/shared/models"

type guessRequest struct {
	Guess string `json:"guess"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type endlessPuzzleResponse struct {
	models.PuzzleResponse
	PoolSize int `json:"poolSize"`
}

type createPuzzleRequest struct {
	ID                  string   `json:"id" binding:"omitempty,puzzleid"`
	ImageURL            string   `json:"imageUrl" binding:"required,url"`
	Answer              string   `json:"answer" binding:"required"`
	Hints               []string `json:"hints"`
	Synonyms            []string `json:"synonyms"`
	MaxGuesses          int      `json:"maxGuesses" binding:"omitempty,min=1,max=50"`
	SimilarityThreshold float64  `json:"similarityThreshold" binding:"omitempty,gt=0,lte=1"`
	SimilarityMode      string   `json:"similarityMode" binding:"omitempty,oneof=embedding llm"`
	SourceText          string   `json:"sourceText"`
	SourceURL           string   `json:"sourceUrl" binding:"omitempty,url"`
	ScheduledDate       *string  `json:"scheduledDate" binding:"omitempty,puzzledate"`
	InEndlessPool       bool     `json:"inEndlessPool"`
}

type createPuzzleResponse struct {
	Success  bool   `json:"success"`
	PuzzleID string `json:"puzzleId"`
	ImageURL string `json:"imageUrl"`
	Variants int    `json:"variants"`
	Message  string `json:"message"`
}

type generateSynonymsRequest struct {
	Answer string `json:"answer" binding:"required"`
	Count  int    `json:"count" binding:"omitempty,min=1,max=50"`
}

type scheduleRequest struct {
	Date *string `json:"date" binding:"omitempty,puzzledate"`
}

type endlessPoolRequest struct {
	InEndlessPool *bool `json:"inEndlessPool" binding:"required"`
}

type activePuzzleRequest struct {
	PuzzleID string `json:"puzzleId"`
}

type activePuzzleResponse struct {
	ActivePuzzleID    *string `json:"activePuzzleId"`
	EffectivePuzzleID string  `json:"effectivePuzzleId"`
	TodayPuzzleID     string  `json:"todayPuzzleId"`
}

type calendarResponse struct {
	Year     int                                `json:"year"`
	Month    int                                `json:"month"`
	Schedule map[string]models.PuzzleIndexEntry `json:"schedule"`
}
