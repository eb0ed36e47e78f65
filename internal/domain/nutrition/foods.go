package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivghost/ragtool/internal/domain/document"
)

// Food is one row of a food composition table. Numeric cells hold float64,
// blank cells nil, everything else the trimmed string.
type Food map[string]any

// KeyNutrientFields are defaulted to 0 when missing or blank, using the
// column names of the French Ciqual composition table.
var KeyNutrientFields = []string{
	"Energie (kcal/100 g)",
	"Protéines (g/100 g)",
	"Glucides (g/100 g)",
	"Lipides (g/100 g)",
	"Fibres alimentaires (g/100 g)",
}

// SupportedFoodExtensions lists the table formats LoadFoods reads.
var SupportedFoodExtensions = []string{".csv", ".json", ".xlsx"}

// LoadFoods reads a food table from .csv, .json (array of objects) or .xlsx.
func LoadFoods(path string) ([]Food, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err := document.LoadCSV(path)
		if err != nil {
			return nil, err
		}
		return fromTable(t), nil
	case ".xlsx":
		t, err := document.LoadXLSX(path)
		if err != nil {
			return nil, err
		}
		return fromTable(t), nil
	case ".json":
		return loadJSON(path)
	default:
		return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedFormat, ext)
	}
}

func fromTable(t document.Table) []Food {
	recs := t.Records()
	foods := make([]Food, 0, len(recs))
	for _, rec := range recs {
		f := make(Food, len(rec))
		for k, v := range rec {
			f[k] = normalizeCell(v)
		}
		foods = append(foods, f)
	}
	return foods
}

func loadJSON(path string) ([]Food, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read foods %s: %w", path, err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse foods %s: %w", path, err)
	}

	foods := make([]Food, 0, len(items))
	for _, item := range items {
		f := make(Food, len(item)+len(KeyNutrientFields))
		for k, v := range item {
			if s, ok := v.(string); ok {
				f[k] = normalizeCell(s)
				continue
			}
			f[k] = v
		}
		for _, key := range KeyNutrientFields {
			if isZeroish(f[key]) {
				f[key] = 0.0
			}
		}
		foods = append(foods, f)
	}
	return foods, nil
}

// normalizeCell turns "12,5" into 12.5 and "" into nil.
func normalizeCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return s
}

func isZeroish(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return x == 0
	case string:
		return x == ""
	case bool:
		return !x
	default:
		return false
	}
}
