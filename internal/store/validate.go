package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"techevents/internal/model"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance is shared by the package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names ("eventUrl") rather than Go names ("EventURL").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// A Timestamp validates as its original text, so `required` rejects the
	// zero value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if ts, ok := field.Interface().(model.Timestamp); ok {
			return ts.String()
		}
		return nil
	}, model.Timestamp{})

	return v
}

// ValidateEvent checks a single record against the event schema.
func ValidateEvent(ev model.Event) error {
	return errors.Join(fieldErrors(-1, ev)...)
}

// ValidateEvents checks every record and the collection-wide invariants
// (unique ids and slugs). All problems are reported together; any problem
// makes the whole collection invalid.
func ValidateEvents(events []model.Event) error {
	var errs []error

	ids := make(map[string]int, len(events))
	slugs := make(map[string]int, len(events))

	for i, ev := range events {
		errs = append(errs, fieldErrors(i, ev)...)

		if ev.ID != "" {
			if first, ok := ids[ev.ID]; ok {
				errs = append(errs, fmt.Errorf("%w %q: events %d and %d", model.ErrDuplicateID, ev.ID, first, i))
			} else {
				ids[ev.ID] = i
			}
		}
		if ev.Slug != "" {
			if first, ok := slugs[ev.Slug]; ok {
				errs = append(errs, fmt.Errorf("%w %q: events %d and %d", model.ErrDuplicateSlug, ev.Slug, first, i))
			} else {
				slugs[ev.Slug] = i
			}
		}
	}

	return errors.Join(errs...)
}

func fieldErrors(index int, ev model.Event) []error {
	err := validate.Struct(ev)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.ValidationError{
			Index:   index,
			Field:   strings.TrimPrefix(fe.Namespace(), "Event."),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return "failed " + fe.Tag() + " check"
	}
}
