package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/infra/llm"
	"github.com/ivghost/ragtool/pkg/uuid"
)

// TopicPlanCompleted is published with the Plan after every generation.
const TopicPlanCompleted = "nutrition.completed"

// MaxFoodsInPrompt caps how many table rows are sent to the model.
const MaxFoodsInPrompt = 20

// Diet types offered to users.
const (
	DietStandard   = "standard"
	DietVegetarian = "vegetarian"
	DietVegan      = "vegan"
	DietKetogenic  = "ketogenic"
)

// ParseDiet normalizes a diet name. Empty means DietStandard.
func ParseDiet(s string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(s))
	switch d {
	case "":
		return DietStandard, nil
	case DietStandard, DietVegetarian, DietVegan, DietKetogenic:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown diet %q", ErrInvalidInput, s)
}

// PlanRequest describes one plan generation. Nil macro targets are derived
// from the others.
type PlanRequest struct {
	FoodsPath string
	Protein   *float64
	Carbs     *float64
	Fats      *float64
	Kcal      *float64
	Meals     int
	Diet      string
	Target    analysis.Target
}

// Plan is the generated meal plan.
type Plan struct {
	RunID     string             `json:"runId"`
	Status    analysis.RunStatus `json:"status"`
	Text      string             `json:"text"`
	Macros    Macros             `json:"macros"`
	Meals     int                `json:"meals"`
	Foods     int                `json:"foods"`
	Provider  llm.Provider       `json:"provider"`
	Model     string             `json:"model"`
	StartedAt time.Time          `json:"startedAt"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Planner asks the model for a 7-day plan built only from the given foods.
type Planner struct {
	gateway llm.Gateway
	sw      *analysis.Switch
	bus     analysis.Publisher
	logger  *slog.Logger
}

// NewPlanner creates a Planner. It observes the same stop switch as the
// document analysis. bus may be nil.
func NewPlanner(gateway llm.Gateway, sw *analysis.Switch, bus analysis.Publisher, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{gateway: gateway, sw: sw, bus: bus, logger: logger}
}

// Generate validates the targets, loads the food table and sends one prompt.
func (p *Planner) Generate(ctx context.Context, req PlanRequest) (Plan, error) {
	start := time.Now()
	plan := Plan{RunID: uuid.NewString(), Meals: req.Meals, Provider: req.Target.Provider, Model: req.Target.Model, StartedAt: start}

	if p.sw.Current().Stopped() {
		plan.Status = analysis.RunCancelled
		plan.Text = analysis.CancelledMessage
		p.publish(plan)
		return plan, nil
	}
	if req.Meals <= 0 {
		return plan, fmt.Errorf("%w: meals per day must be > 0, got %d", ErrInvalidInput, req.Meals)
	}
	macros, err := planMacros(req)
	if err != nil {
		return plan, err
	}
	plan.Macros = macros

	foods, err := LoadFoods(req.FoodsPath)
	if err != nil {
		return plan, err
	}
	if len(foods) > MaxFoodsInPrompt {
		foods = foods[:MaxFoodsInPrompt]
	}
	plan.Foods = len(foods)
	p.logger.Info("foods loaded", "count", len(foods))

	prompt, err := planPrompt(macros, req.Meals, req.Diet, foods)
	if err != nil {
		return plan, err
	}
	resp := p.gateway.Send(ctx, req.Target.Request(prompt))
	plan.Elapsed = time.Since(start)
	if !resp.OK() {
		plan.Status = analysis.RunFailed
		plan.Text = "[error] " + resp.Failure.Error()
		p.logger.Warn("nutrition plan failed", "error", resp.Failure.Error(), "elapsed", plan.Elapsed)
		p.publish(plan)
		return plan, nil
	}
	plan.Status = analysis.RunOK
	plan.Text = resp.Text
	p.logger.Info("nutrition plan generated", "elapsed", plan.Elapsed.Round(10*time.Millisecond))
	p.publish(plan)
	return plan, nil
}

func (p *Planner) publish(plan Plan) {
	if p.bus != nil {
		p.bus.Publish(TopicPlanCompleted, plan)
	}
}

// planMacros keeps given targets, derives kcal from the macros when it is
// missing, and otherwise completes missing macros from kcal.
func planMacros(req PlanRequest) (Macros, error) {
	if req.Protein == nil && req.Carbs == nil && req.Fats == nil && req.Kcal == nil {
		return Macros{}, fmt.Errorf("%w: at least one macro or calorie target is required", ErrInvalidInput)
	}
	if req.Kcal == nil {
		m := Macros{Protein: deref(req.Protein), Carbs: deref(req.Carbs), Fats: deref(req.Fats)}
		m.Kcal = EnergyOf(m.Protein, m.Carbs, m.Fats)
		return m, nil
	}
	return CompleteMacros(req.Protein, req.Carbs, req.Fats, req.Kcal)
}

func planPrompt(m Macros, meals int, diet string, foods []Food) (string, error) {
	table, err := json.MarshalIndent(foods, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode foods: %w", err)
	}
	if diet == "" {
		diet = DietStandard
	}
	n := float64(meals)
	return fmt.Sprintf("You are an expert nutrition assistant. Generate a 7-day meal plan, "+
		"%d meals/day, for a %s diet, meeting these daily macros:\n"+
		"- %.0f kcal\n"+
		"- %.1f g protein (%.1fg/meal)\n"+
		"- %.1f g carbohydrates (%.1fg/meal)\n"+
		"- %.1f g fat (%.1fg/meal)\n\n"+
		"Use only these foods (quantities in g):\n%s"+
		"\n\nShow only a table without explanations, in markdown format.",
		meals, diet,
		m.Kcal,
		m.Protein, m.Protein/n,
		m.Carbs, m.Carbs/n,
		m.Fats, m.Fats/n,
		table,
	), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
