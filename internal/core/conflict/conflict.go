// Package conflict 以使用者的營養限制為食物評分，產生紅黃綠燈判定與說明。
//
// 評分是純函式：沒有 I/O、沒有隨機性，相同輸入永遠得到相同判定。
package conflict

import (
	"fmt"
	"math"
	"strings"

	"nutriguard/internal/core/nutrition"
)

// Color 判定燈號
type Color string

const (
	Red    Color = "Red"
	Yellow Color = "Yellow"
	Green  Color = "Green"
)

// FitsReason 沒有任何扣分時的說明
const FitsReason = "Fits within your nutrition limits."

// Verdict 單一食物對單一使用者的判定結果，每次查詢重新計算，不快取
type Verdict struct {
	Score     int    `json:"score"`
	Color     Color  `json:"color"`
	Reasoning string `json:"reasoning"`
}

// Score 依營養限制為食物評分
func Score(n nutrition.Nutrition, basis nutrition.Basis, foodName string, limits *nutrition.Limits) Verdict {
	if term, ok := avoidedIngredient(foodName, limits); ok {
		return Verdict{
			Score:     0,
			Color:     Red,
			Reasoning: "Contains avoided ingredient: " + term,
		}
	}

	values := ComparisonBasis(n, basis)
	score := 100
	var reasons []string

	if value, pct, ok := percentOfMax(values.Sodium, nutrition.Sodium, limits); ok {
		if pct > 75 {
			score -= 50
			reasons = append(reasons, fmt.Sprintf("Very high sodium (%.0fmg) - %.0f%% of daily limit", math.Round(value), math.Round(pct)))
		} else if pct > 30 {
			score -= 20
			reasons = append(reasons, fmt.Sprintf("High sodium (%.0fmg)", math.Round(value)))
		}
	}

	if value, pct, ok := percentOfMax(values.Sugar, nutrition.Sugar, limits); ok {
		if pct > 75 {
			score -= 40
			reasons = append(reasons, fmt.Sprintf("Very high sugar (%.0fg)", math.Round(value)))
		} else if pct > 40 {
			score -= 15
			reasons = append(reasons, fmt.Sprintf("High sugar (%.0fg)", math.Round(value)))
		}
	}

	if _, pct, ok := percentOfMax(values.Potassium, nutrition.Potassium, limits); ok && pct > 75 {
		score -= 30
		reasons = append(reasons, "High potassium")
	}

	if _, pct, ok := percentOfMax(values.Phosphorus, nutrition.Phosphorus, limits); ok && pct > 75 {
		score -= 30
		reasons = append(reasons, "High phosphorus")
	}

	score = clamp(score)
	reasoning := strings.Join(reasons, ". ")
	if reasoning == "" {
		reasoning = FitsReason
	}

	return Verdict{Score: score, Color: Classify(score), Reasoning: reasoning}
}

// Classify 分數轉燈號：≤50 紅、51–84 黃、≥85 綠
func Classify(score int) Color {
	switch {
	case score <= 50:
		return Red
	case score < 85:
		return Yellow
	default:
		return Green
	}
}

// ComparisonBasis 取得與每日上限比較的營養數值。
//
// 每 100g 與每份的資料目前都直接與每日絕對上限比較，不換算。
// 日後要依份量換算時只需修改這裡。
func ComparisonBasis(n nutrition.Nutrition, basis nutrition.Basis) nutrition.Nutrition {
	_ = basis
	return n
}

func avoidedIngredient(foodName string, limits *nutrition.Limits) (string, bool) {
	if limits == nil || len(limits.AvoidIngredients) == 0 {
		return "", false
	}
	name := strings.ToLower(foodName)
	for _, term := range limits.AvoidIngredients {
		t := strings.TrimSpace(term)
		if t == "" {
			continue
		}
		if strings.Contains(name, strings.ToLower(t)) {
			return term, true
		}
	}
	return "", false
}

func percentOfMax(value float64, code nutrition.NutrientCode, limits *nutrition.Limits) (float64, float64, bool) {
	max, ok := limits.Max(code)
	if !ok || max <= 0 || value <= 0 {
		return 0, 0, false
	}
	return value, value / max * 100, true
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
