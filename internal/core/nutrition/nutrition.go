// Package nutrition 定義標準化營養資料、使用者營養限制，以及各供應商營養欄位的標準化規則。
package nutrition

// Basis 營養數值的計量基準
type Basis string

const (
	BasisPer100g    Basis = "per_100g"
	BasisPerServing Basis = "per_serving"
)

// Nutrition 標準化後的營養資料，鈉、鉀、磷單位為 mg，其餘為 g（熱量為 kcal）
//
// 建立後不再修改；數值保留完整精度，只在持久化或輸出時四捨五入。
type Nutrition struct {
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Fat        float64 `json:"fat"`
	Carbs      float64 `json:"carbs"`
	Fiber      float64 `json:"fiber"`
	Sugar      float64 `json:"sugar"`
	Sodium     float64 `json:"sodium"`
	AddedSugar float64 `json:"addedSugar"`

	// 延伸欄位，供應商未提供時為 0
	Potassium  float64 `json:"potassium,omitempty"`
	Phosphorus float64 `json:"phosphorus,omitempty"`

	ServingSize     *float64 `json:"servingSize,omitempty"`
	ServingSizeUnit string   `json:"servingSizeUnit,omitempty"`
}

// Value 依營養代碼取值
func (n Nutrition) Value(code NutrientCode) float64 {
	switch code {
	case Sodium:
		return n.Sodium
	case Sugar:
		return n.Sugar
	case Potassium:
		return n.Potassium
	case Phosphorus:
		return n.Phosphorus
	case Protein:
		return n.Protein
	case Carbs:
		return n.Carbs
	case Fiber:
		return n.Fiber
	}
	return 0
}

// clean 負數與非有限值一律歸零
func (n Nutrition) clean() Nutrition {
	n.Calories = nonNegative(n.Calories)
	n.Protein = nonNegative(n.Protein)
	n.Fat = nonNegative(n.Fat)
	n.Carbs = nonNegative(n.Carbs)
	n.Fiber = nonNegative(n.Fiber)
	n.Sugar = nonNegative(n.Sugar)
	n.Sodium = nonNegative(n.Sodium)
	n.AddedSugar = nonNegative(n.AddedSugar)
	n.Potassium = nonNegative(n.Potassium)
	n.Phosphorus = nonNegative(n.Phosphorus)
	if n.ServingSize != nil && *n.ServingSize <= 0 {
		n.ServingSize = nil
	}
	return n
}
