package journal

import (
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// AddEntryInput holds parameters for adding a food entry by hand.
type AddEntryInput struct {
	UserID uuid.UUID
	Date   string
	Meal   domain.Meal
	Item   domain.FoodItem
}

// Validate validates the add entry input and normalizes the item.
func (i *AddEntryInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if _, err := domain.ParseDate(i.Date); err != nil {
		errs = append(errs, domain.FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if !i.Meal.IsValid() {
		errs = append(errs, domain.FieldError{Field: "meal", Message: "must be breakfast, lunch, dinner or snacks"})
	}
	i.Item = normalizeItem(i.Item)
	errs = append(errs, validateItem(i.Item)...)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateEntryInput holds parameters for editing a food entry.
// All item fields are optional (nil = don't change).
type UpdateEntryInput struct {
	UserID   uuid.UUID
	EntryID  uuid.UUID
	Meal     *domain.Meal
	Name     *string
	Quantity *string
	Calories *int
	Protein  *int
	Carbs    *int
	Fat      *int
}

// Validate validates the update entry input.
func (i UpdateEntryInput) Validate() error {
	var errs []domain.FieldError

	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.EntryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "entry_id", Message: "required"})
	}
	if i.Meal != nil && !i.Meal.IsValid() {
		errs = append(errs, domain.FieldError{Field: "meal", Message: "must be breakfast, lunch, dinner or snacks"})
	}
	if i.Name != nil && strings.TrimSpace(*i.Name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// apply merges the changes into the current entry.
func (i UpdateEntryInput) apply(current domain.FoodEntry) (domain.Meal, domain.FoodItem) {
	meal, item := current.Meal, current.FoodItem
	if i.Meal != nil {
		meal = *i.Meal
	}
	if i.Name != nil {
		item.Name = *i.Name
	}
	if i.Quantity != nil {
		item.Quantity = *i.Quantity
	}
	if i.Calories != nil {
		item.Calories = *i.Calories
	}
	if i.Protein != nil {
		item.Protein = *i.Protein
	}
	if i.Carbs != nil {
		item.Carbs = *i.Carbs
	}
	if i.Fat != nil {
		item.Fat = *i.Fat
	}
	return meal, normalizeItem(item)
}

func normalizeItem(item domain.FoodItem) domain.FoodItem {
	item.Name = strings.TrimSpace(item.Name)
	item.Quantity = strings.TrimSpace(item.Quantity)
	if item.Quantity == "" {
		item.Quantity = domain.DefaultQuantity
	}
	return item
}

func validateItem(item domain.FoodItem) []domain.FieldError {
	var errs []domain.FieldError
	if item.Name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if len(item.Name) > 200 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long"})
	}
	if item.Calories < 0 {
		errs = append(errs, domain.FieldError{Field: "calories", Message: "must be non-negative"})
	}
	if item.Protein < 0 {
		errs = append(errs, domain.FieldError{Field: "protein", Message: "must be non-negative"})
	}
	if item.Carbs < 0 {
		errs = append(errs, domain.FieldError{Field: "carbs", Message: "must be non-negative"})
	}
	if item.Fat < 0 {
		errs = append(errs, domain.FieldError{Field: "fat", Message: "must be non-negative"})
	}
	return errs
}
