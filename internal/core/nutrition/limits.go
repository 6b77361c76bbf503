package nutrition

// NutrientCode 跨供應商的營養素代碼
type NutrientCode string

const (
	Sodium     NutrientCode = "NA"     // mg
	Sugar      NutrientCode = "SUGAR"  // g
	Potassium  NutrientCode = "K"      // mg
	Phosphorus NutrientCode = "P"      // mg
	Protein    NutrientCode = "PROCNT" // g
	Carbs      NutrientCode = "CHOCDF" // g
	Fiber      NutrientCode = "FIBTG"  // g
)

// Codes 固定詞彙表
var Codes = []NutrientCode{Sodium, Sugar, Potassium, Phosphorus, Protein, Carbs, Fiber}

// Valid 檢查代碼是否屬於詞彙表
func (c NutrientCode) Valid() bool {
	for _, code := range Codes {
		if c == code {
			return true
		}
	}
	return false
}

// Range 單一營養素的每日範圍，未設定的邊界代表不限制
type Range struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Unit string   `json:"unit,omitempty"`
}

// CalorieRange 每日熱量範圍
type CalorieRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Limits 使用者的每日營養限制，由使用者資料提供，引擎只讀
type Limits struct {
	DailyCalories    *CalorieRange          `json:"daily_calories,omitempty"`
	Nutrients        map[NutrientCode]Range `json:"nutrients,omitempty"`
	AvoidIngredients []string               `json:"avoid_ingredients,omitempty"`
}

// Max 取得營養素上限
func (l *Limits) Max(code NutrientCode) (float64, bool) {
	if l == nil {
		return 0, false
	}
	r, ok := l.Nutrients[code]
	if !ok || r.Max == nil {
		return 0, false
	}
	return *r.Max, true
}

// Min 取得營養素下限
func (l *Limits) Min(code NutrientCode) (float64, bool) {
	if l == nil {
		return 0, false
	}
	r, ok := l.Nutrients[code]
	if !ok || r.Min == nil {
		return 0, false
	}
	return *r.Min, true
}

// CalorieTarget 每日熱量目標，取範圍中點；未設定時回傳 fallback
func (l *Limits) CalorieTarget(fallback float64) float64 {
	if l == nil || l.DailyCalories == nil {
		return fallback
	}
	dc := l.DailyCalories
	switch {
	case dc.Min > 0 && dc.Max > 0:
		return (dc.Min + dc.Max) / 2
	case dc.Max > 0:
		return dc.Max
	case dc.Min > 0:
		return dc.Min
	}
	return fallback
}

// Float 建立 *float64，方便組裝限制
func Float(v float64) *float64 {
	return &v
}
