package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQuantity is used when the extraction source omits a quantity.
const DefaultQuantity = "1 serving"

// Energy per gram of each macronutrient, in kcal.
const (
	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

// Meal is the slot a food entry belongs to within a day.
type Meal string

const (
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
	MealSnacks    Meal = "snacks"
)

// Meals lists all meal slots in display order.
var Meals = []Meal{MealBreakfast, MealLunch, MealDinner, MealSnacks}

func (m Meal) String() string { return string(m) }

func (m Meal) IsValid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnacks:
		return true
	}
	return false
}

// FoodItem is a single food with its macros as described by the user.
type FoodItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fat      int    `json:"fat"`
}

// EstimatedCalories returns the calories implied by the item's macros.
func (f FoodItem) EstimatedCalories() int {
	return f.Protein*KcalPerGramProtein + f.Carbs*KcalPerGramCarbs + f.Fat*KcalPerGramFat
}

// FoodEntry is a persisted FoodItem owned by a user and placed in a meal slot.
type FoodEntry struct {
	FoodItem
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	DailyLogID uuid.UUID `json:"dailyLogId"`
	Meal       Meal      `json:"meal"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MacroTotals is the sum of macros over a set of items.
type MacroTotals struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Add returns t plus the macros of item.
func (t MacroTotals) Add(item FoodItem) MacroTotals {
	return MacroTotals{
		Calories: t.Calories + item.Calories,
		Protein:  t.Protein + item.Protein,
		Carbs:    t.Carbs + item.Carbs,
		Fat:      t.Fat + item.Fat,
	}
}

// Sub returns t minus o, field by field.
func (t MacroTotals) Sub(o MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: t.Calories - o.Calories,
		Protein:  t.Protein - o.Protein,
		Carbs:    t.Carbs - o.Carbs,
		Fat:      t.Fat - o.Fat,
	}
}

// MacroTargets are the daily goals of a user.
type MacroTargets struct {
	UserID   uuid.UUID `json:"-"`
	Calories int       `json:"calories"`
	Protein  int       `json:"protein"`
	Carbs    int       `json:"carbs"`
	Fat      int       `json:"fat"`
}

// DefaultMacroTargets returns the targets used until the user sets their own.
func DefaultMacroTargets(userID uuid.UUID) MacroTargets {
	return MacroTargets{
		UserID:   userID,
		Calories: 2000,
		Protein:  150,
		Carbs:    200,
		Fat:      65,
	}
}

// Validate checks the targets before they are accepted.
func (t MacroTargets) Validate() error {
	var errs []FieldError
	if t.Calories <= 0 {
		errs = append(errs, FieldError{Field: "calories", Message: "must be greater than 0"})
	}
	if t.Protein < 0 {
		errs = append(errs, FieldError{Field: "protein", Message: "must be non-negative"})
	}
	if t.Carbs < 0 {
		errs = append(errs, FieldError{Field: "carbs", Message: "must be non-negative"})
	}
	if t.Fat < 0 {
		errs = append(errs, FieldError{Field: "fat", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// DailyLog is the ledger of one calendar day of one user.
// Totals always equal the sum of the entries; they are never edited directly.
type DailyLog struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"userId"`
	Date      string               `json:"date"`
	Meals     map[Meal][]FoodEntry `json:"meals"`
	Totals    MacroTotals          `json:"totals"`
	Targets   *MacroTargets        `json:"targets,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// NewDailyLog returns an empty, unsaved day (ID is uuid.Nil).
func NewDailyLog(userID uuid.UUID, date string) *DailyLog {
	d := &DailyLog{
		UserID: userID,
		Date:   date,
		Meals:  make(map[Meal][]FoodEntry, len(Meals)),
	}
	for _, m := range Meals {
		d.Meals[m] = []FoodEntry{}
	}
	return d
}

// IsPersisted reports whether the day has a row in storage.
func (d *DailyLog) IsPersisted() bool { return d.ID != uuid.Nil }

// EntryCount returns the number of entries across all meals.
func (d *DailyLog) EntryCount() int {
	n := 0
	for _, m := range Meals {
		n += len(d.Meals[m])
	}
	return n
}

// IsEmpty reports whether the day has no entries.
func (d *DailyLog) IsEmpty() bool { return d.EntryCount() == 0 }

// SumEntries recomputes the totals from the current entries.
func (d *DailyLog) SumEntries() MacroTotals {
	var t MacroTotals
	for _, m := range Meals {
		for _, e := range d.Meals[m] {
			t = t.Add(e.FoodItem)
		}
	}
	return t
}

// RecomputeTotals sets Totals to the sum of the entries.
func (d *DailyLog) RecomputeTotals() {
	d.Totals = d.SumEntries()
}

// Clone returns a deep copy of the day.
func (d *DailyLog) Clone() *DailyLog {
	if d == nil {
		return nil
	}
	c := *d
	c.Meals = make(map[Meal][]FoodEntry, len(Meals))
	for _, m := range Meals {
		entries := make([]FoodEntry, len(d.Meals[m]))
		copy(entries, d.Meals[m])
		c.Meals[m] = entries
	}
	if d.Targets != nil {
		t := *d.Targets
		c.Targets = &t
	}
	return &c
}

// ExtractionResult is the complete candidate state of one day's four meals.
// It is not a diff: applying it replaces every entry of the day.
type ExtractionResult struct {
	Breakfast []FoodItem `json:"breakfast"`
	Lunch     []FoodItem `json:"lunch"`
	Dinner    []FoodItem `json:"dinner"`
	Snacks    []FoodItem `json:"snacks"`
}

// Items returns the items of a meal slot.
func (r *ExtractionResult) Items(m Meal) []FoodItem {
	switch m {
	case MealBreakfast:
		return r.Breakfast
	case MealLunch:
		return r.Lunch
	case MealDinner:
		return r.Dinner
	case MealSnacks:
		return r.Snacks
	}
	return nil
}

// ItemCount returns the number of items across all meals.
func (r *ExtractionResult) ItemCount() int {
	return len(r.Breakfast) + len(r.Lunch) + len(r.Dinner) + len(r.Snacks)
}

// Totals returns the sum of all items.
func (r *ExtractionResult) Totals() MacroTotals {
	var t MacroTotals
	for _, m := range Meals {
		for _, item := range r.Items(m) {
			t = t.Add(item)
		}
	}
	return t
}

// ExtractionResultFromDay rebuilds the complete-day shape of a stored log.
func ExtractionResultFromDay(d *DailyLog) *ExtractionResult {
	r := &ExtractionResult{}
	if d == nil {
		return r
	}
	collect := func(m Meal) []FoodItem {
		items := make([]FoodItem, 0, len(d.Meals[m]))
		for _, e := range d.Meals[m] {
			items = append(items, e.FoodItem)
		}
		return items
	}
	r.Breakfast = collect(MealBreakfast)
	r.Lunch = collect(MealLunch)
	r.Dinner = collect(MealDinner)
	r.Snacks = collect(MealSnacks)
	return r
}

// User is the owner of logs and targets.
type User struct {
	ID        uuid.UUID
	Name      string
	Timezone  string
	CreatedAt time.Time
}
