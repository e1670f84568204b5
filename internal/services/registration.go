package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// RegistrationInput is what the registration form submits. Dates are MM/DD/YYYY
// text; tendency is free text parsed leniently.
type RegistrationInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	Country         string `json:"country" validate:"max=100"`
	BirthDate       string `json:"birthDate"`
	LastReplacement string `json:"lastReplacement"`
	VisaType        string `json:"visaType" validate:"max=100"`
	Tendency        string `json:"tendency"`
}

var registrationValidator = validator.New()

// ParseTendencyInput reads the leading integer of text, treating anything
// non-numeric as 0 and clamping to [0,10].
func ParseTendencyInput(text string) int {
	n, ok := utils.ParseLeadingInt(text)
	if !ok {
		return 0
	}
	if n < MinTendency {
		return MinTendency
	}
	if n > MaxTendency {
		return MaxTendency
	}
	return n
}

// BuildMember validates a registration and returns the record to persist with
// every derived field already computed. Nothing is written here.
func BuildMember(in RegistrationInput, now time.Time, loc *time.Location) (*models.Member, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := registrationValidator.Struct(in); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, validationError(describeFieldError(ve[0]))
		}
		return nil, validationError("invalid registration")
	}

	birth, ok := utils.ParseUSDate(in.BirthDate, loc)
	if !ok {
		return nil, validationError("Birth Date must be entered as MM/DD/YYYY.")
	}
	last, ok := utils.ParseUSDate(in.LastReplacement, loc)
	if !ok {
		return nil, validationError("Last Replacement must be entered as MM/DD/YYYY.")
	}

	tendency := ParseTendencyInput(in.Tendency)
	due, ok := ProjectDueDate(utils.SecondsInstant(last), float64(tendency), loc)
	if !ok {
		return nil, validationError("Failed to compute the battery due date.")
	}

	return &models.Member{
		Name:                       in.Name,
		Country:                    in.Country,
		BirthDate:                  utils.SecondsInstant(birth),
		LastBatteryReplacementDate: utils.SecondsInstant(last),
		BatteryDueDate:             utils.SecondsInstant(due),
		Tendency:                   models.Tendency(tendency),
		VisaType:                   in.VisaType,
		VisaTypeOriginal:           lo.ToPtr(in.VisaType),
		CanFinancialTransactions:   true,
		LastUpdatedClient:          utils.SecondsInstant(now.Unix()),
	}, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", fe.Field())
}
