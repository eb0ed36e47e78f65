package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/domain/nutrition"
)

// Planner generates a nutrition plan.
type Planner interface {
	Generate(ctx context.Context, req nutrition.PlanRequest) (nutrition.Plan, error)
}

// NutritionHandler handles meal plan requests.
type NutritionHandler struct {
	planner  Planner
	defaults analysis.Target
	uploads  Uploads
	logger   *slog.Logger
}

// NewNutritionHandler creates a NutritionHandler.
func NewNutritionHandler(planner Planner, defaults analysis.Target, uploads Uploads, logger *slog.Logger) *NutritionHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NutritionHandler{planner: planner, defaults: defaults, uploads: uploads, logger: logger}
}

// Plan handles POST /api/v1/nutrition/plan.
//
// Multipart fields: file (foods table), protein, carbs, fats, kcal,
// dietType, meals, provider, model, credential.
func (h *NutritionHandler) Plan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.maxBytes())
	if err := r.ParseMultipartForm(h.uploads.maxBytes()); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	req, err := h.planRequest(r)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	path, _, cleanup, ok, err := spoolUpload(r, "file", h.uploads.Dir)
	if err != nil {
		h.logger.Error("upload spool failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer cleanup()
	if !ok {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	req.FoodsPath = path

	plan, err := h.planner.Generate(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("nutrition plan failed", "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, statusForRun(plan.Status), plan)
}

func (h *NutritionHandler) planRequest(r *http.Request) (nutrition.PlanRequest, error) {
	var (
		req nutrition.PlanRequest
		err error
	)
	if req.Target, err = targetFromForm(r, h.defaults); err != nil {
		return req, err
	}
	if req.Diet, err = nutrition.ParseDiet(r.FormValue("dietType")); err != nil {
		return req, err
	}
	for key, dst := range map[string]**float64{
		"protein": &req.Protein,
		"carbs":   &req.Carbs,
		"fats":    &req.Fats,
		"kcal":    &req.Kcal,
	} {
		if *dst, err = formFloat(r, key); err != nil {
			return req, err
		}
	}

	meals := strings.TrimSpace(r.FormValue("meals"))
	if meals == "" {
		return req, badMeals()
	}
	// number inputs may send "3.0"
	f, err := strconv.ParseFloat(meals, 64)
	if err != nil || f != float64(int(f)) {
		return req, badMeals()
	}
	req.Meals = int(f)
	return req, nil
}

func badMeals() error {
	return fmt.Errorf("%w: meals must be a whole number", nutrition.ErrInvalidInput)
}
