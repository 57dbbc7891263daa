package extraction

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// daySchema is the fixed output schema of the extraction service.
// All four meal arrays are required; every item needs a non-blank name and
// macros in [0, 100000].
const daySchema = `
#Amount: number & >=0 & <=100000

#Item: {
	name:      string & =~"\\S"
	quantity?: string | null
	calories:  #Amount
	protein:   #Amount
	carbs:     #Amount
	fat:       #Amount
	...
}

#Day: {
	breakfast: [...#Item]
	lunch:     [...#Item]
	dinner:    [...#Item]
	snacks:    [...#Item]
	...
}
`

type wireItem struct {
	Name     string  `json:"name"`
	Quantity *string `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type wireDay struct {
	Breakfast []wireItem `json:"breakfast"`
	Lunch     []wireItem `json:"lunch"`
	Dinner    []wireItem `json:"dinner"`
	Snacks    []wireItem `json:"snacks"`
}

// Schema validates and normalizes raw extraction output.
type Schema struct {
	mu  sync.Mutex // cue.Context is not safe for concurrent use
	ctx *cue.Context
	day cue.Value
}

// NewSchema compiles the output schema.
func NewSchema() (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(daySchema, cue.Filename("day.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile day schema: %w", err)
	}
	day := v.LookupPath(cue.ParsePath("#Day"))
	if err := day.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Day: %w", err)
	}
	return &Schema{ctx: ctx, day: day}, nil
}

// Decode validates raw JSON against the schema and returns the normalized
// result. Any violation rejects the whole result with SchemaInvalid.
func (s *Schema) Decode(raw []byte) (*domain.ExtractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr, err := cuejson.Extract("response.json", raw)
	if err != nil {
		return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid, fmt.Errorf("parse response: %w", err))
	}
	data := s.ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid, fmt.Errorf("build response: %w", err))
	}

	// An open list is concrete on its own, so presence is checked on the response.
	for _, meal := range domain.Meals {
		if !data.LookupPath(cue.ParsePath(string(meal))).Exists() {
			return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid, fmt.Errorf("validate response: missing %s", meal))
		}
	}

	v := s.day.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid, fmt.Errorf("validate response: %w", err))
	}

	var w wireDay
	if err := v.Decode(&w); err != nil {
		return nil, domain.NewExtractionError(domain.ExtractionSchemaInvalid, fmt.Errorf("decode response: %w", err))
	}

	return &domain.ExtractionResult{
		Breakfast: normalizeItems(w.Breakfast),
		Lunch:     normalizeItems(w.Lunch),
		Dinner:    normalizeItems(w.Dinner),
		Snacks:    normalizeItems(w.Snacks),
	}, nil
}

func normalizeItems(in []wireItem) []domain.FoodItem {
	out := make([]domain.FoodItem, 0, len(in))
	for _, w := range in {
		quantity := domain.DefaultQuantity
		if w.Quantity != nil && strings.TrimSpace(*w.Quantity) != "" {
			quantity = strings.TrimSpace(*w.Quantity)
		}
		out = append(out, domain.FoodItem{
			Name:     strings.TrimSpace(w.Name),
			Quantity: quantity,
			Calories: int(math.Round(w.Calories)),
			Protein:  int(math.Round(w.Protein)),
			Carbs:    int(math.Round(w.Carbs)),
			Fat:      int(math.Round(w.Fat)),
		})
	}
	return out
}
