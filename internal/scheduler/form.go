package scheduler

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/syncare/internal/model"
)

// DefaultTime prefills the form when a day is selected.
const DefaultTime = "09:00"

var timeFormatRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Form is the editable part of an appointment.
type Form struct {
	Time    string `json:"time" validate:"required,hhmm"`
	Patient string `json:"patient" validate:"required,max=120"`
	Title   string `json:"title" validate:"max=200"`
}

// DefaultForm is the blank record shown for a newly selected day.
func DefaultForm() Form {
	return Form{Time: DefaultTime}
}

// FormFrom copies a record's editable fields.
func FormFrom(a model.Appointment) Form {
	return Form{Time: a.Time, Patient: a.Patient, Title: a.Title}
}

func (f Form) normalized() Form {
	return Form{
		Time:    strings.TrimSpace(f.Time),
		Patient: strings.TrimSpace(f.Patient),
		Title:   strings.TrimSpace(f.Title),
	}
}

func (f Form) record(id int64) model.Appointment {
	return model.Appointment{ID: id, Time: f.Time, Patient: f.Patient, Title: f.Title}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeFormatRegexp.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks f and returns a *ValidationError on failure.
func (f Form) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "hhmm":
			fields[field] = field + " must be HH:MM format"
		case "max":
			fields[field] = field + " must be at most " + e.Param() + " characters"
		default:
			fields[field] = field + " is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}
