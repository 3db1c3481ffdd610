package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"mapguess-server/internal/service"
	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators добавляет в валидатор gin правила puzzledate (YYYY-MM-DD)
// и puzzleid (без "/" и не зарезервированное имя).
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("puzzledate", func(fl validator.FieldLevel) bool {
			return models.ValidateDate(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("puzzleid", func(fl validator.FieldLevel) bool {
			id := fl.Field().String()
			return !strings.Contains(id, "/") && !service.IsReservedID(id)
		})
	})
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "puzzleid":
			parts = append(parts, fmt.Sprintf("%s is not a usable puzzle id", fe.Field()))
		case "puzzledate":
			parts = append(parts, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
