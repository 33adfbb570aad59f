package config

import (
	"ProjectSpatial/internal/entity"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("detect_task", func(fl validator.FieldLevel) bool {
		_, err := entity.ParseDetectionTask(fl.Field().String())
		return err == nil
	})

	return validate
}
