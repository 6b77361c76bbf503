package nutrition

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// 食鹽換算鈉：salt(g) × 0.4 × 1000 = 鈉(mg)
const saltToSodiumMg = 400

// Fields 供應商回傳的原始欄位，值可能是數字、數字字串、json.Number 或 null
type Fields map[string]any

// First 依序嘗試候選欄位，回傳第一個存在且可解析為數字的值
func (f Fields) First(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		if x, ok := toFloat(v); ok {
			return x, true
		}
	}
	return 0, false
}

// Get 同 First，找不到時回傳 0
func (f Fields) Get(keys ...string) float64 {
	v, _ := f.First(keys...)
	return v
}

// String 取得字串欄位
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var x float64
	switch t := v.(type) {
	case float64:
		x = t
	case float32:
		x = float64(t)
	case int:
		x = float64(t)
	case int64:
		x = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		x = f
	case *float64:
		if t == nil {
			return 0, false
		}
		x = *t
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Raw 各供應商的原始營養資料（封閉的判別聯合）
type Raw interface {
	raw()
}

// FatSecretServing FatSecret 食物或食譜的單一份量，數值多以字串回傳
type FatSecretServing struct {
	Fields Fields
}

// USDANutrient FoodData Central 的單一營養素
type USDANutrient struct {
	NutrientID     int      `json:"nutrientId"`
	NutrientNumber string   `json:"nutrientNumber"`
	NutrientName   string   `json:"nutrientName"`
	UnitName       string   `json:"unitName"`
	Value          *float64 `json:"value"`
}

// USDAFood FoodData Central 食品的營養資料（每 100g）
type USDAFood struct {
	Nutrients       []USDANutrient
	ServingSize     float64
	ServingSizeUnit string
}

// OpenFoodFactsNutriments Open Food Facts 的 nutriments（每 100g）
type OpenFoodFactsNutriments struct {
	Nutriments      Fields
	ServingQuantity float64
	ServingUnit     string
}

// EdamamQuantity Edamam totalNutrients 的單一項目
type EdamamQuantity struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// EdamamRecipe Edamam 食譜整道菜的營養總量與份數
type EdamamRecipe struct {
	TotalNutrients map[string]EdamamQuantity
	Yield          float64
}

// Normalized 已標準化的資料（例如由快取還原），原樣回傳
type Normalized struct {
	Nutrition Nutrition
}

func (FatSecretServing) raw()        {}
func (USDAFood) raw()                {}
func (OpenFoodFactsNutriments) raw() {}
func (EdamamRecipe) raw()            {}
func (Normalized) raw()              {}

// Normalize 將任一供應商的原始資料轉為標準化營養資料，缺漏欄位一律為 0，不會失敗
func Normalize(r Raw) Nutrition {
	var n Nutrition
	switch v := r.(type) {
	case FatSecretServing:
		n = fromFatSecret(v)
	case USDAFood:
		n = fromUSDA(v)
	case OpenFoodFactsNutriments:
		n = fromOpenFoodFacts(v)
	case EdamamRecipe:
		n = fromEdamam(v)
	case Normalized:
		n = v.Nutrition
	}
	return n.clean()
}

func fromFatSecret(s FatSecretServing) Nutrition {
	f := s.Fields
	n := Nutrition{
		Calories:   f.Get("calories"),
		Protein:    f.Get("protein"),
		Fat:        f.Get("fat"),
		Carbs:      f.Get("carbohydrate", "carbohydrates"),
		Fiber:      f.Get("fiber"),
		Sugar:      f.Get("sugar"),
		Sodium:     f.Get("sodium"),
		AddedSugar: f.Get("added_sugars"),
		Potassium:  f.Get("potassium"),
		Phosphorus: f.Get("phosphorus"),
	}
	if amount, ok := f.First("metric_serving_amount", "serving_size"); ok {
		n.ServingSize = &amount
		n.ServingSizeUnit = f.String("metric_serving_unit")
	}
	return n
}

// USDA 營養素候選：依序以 nutrientNumber 或 nutrientId 比對
var usdaCandidates = map[string][]struct {
	number string
	id     int
}{
	"energy":     {{"208", 1008}, {"957", 2047}, {"958", 2048}},
	"protein":    {{"203", 1003}},
	"fat":        {{"204", 1004}},
	"carbs":      {{"205", 1005}},
	"fiber":      {{"291", 1079}},
	"sugar":      {{"269", 2000}, {"269.3", 1063}},
	"sodium":     {{"307", 1093}},
	"addedSugar": {{"539", 1235}},
	"potassium":  {{"306", 1092}},
	"phosphorus": {{"305", 1091}},
}

func usdaValue(nutrients []USDANutrient, key string) float64 {
	for _, c := range usdaCandidates[key] {
		for _, nt := range nutrients {
			if nt.Value == nil {
				continue
			}
			if nt.NutrientNumber != c.number && nt.NutrientID != c.id {
				continue
			}
			if key == "energy" && strings.EqualFold(nt.UnitName, "kJ") {
				continue
			}
			return *nt.Value
		}
	}
	return 0
}

func fromUSDA(u USDAFood) Nutrition {
	n := Nutrition{
		Calories:   usdaValue(u.Nutrients, "energy"),
		Protein:    usdaValue(u.Nutrients, "protein"),
		Fat:        usdaValue(u.Nutrients, "fat"),
		Carbs:      usdaValue(u.Nutrients, "carbs"),
		Fiber:      usdaValue(u.Nutrients, "fiber"),
		Sugar:      usdaValue(u.Nutrients, "sugar"),
		Sodium:     usdaValue(u.Nutrients, "sodium"),
		AddedSugar: usdaValue(u.Nutrients, "addedSugar"),
		Potassium:  usdaValue(u.Nutrients, "potassium"),
		Phosphorus: usdaValue(u.Nutrients, "phosphorus"),
	}
	if u.ServingSize > 0 {
		size := u.ServingSize
		n.ServingSize = &size
		n.ServingSizeUnit = u.ServingSizeUnit
	}
	return n
}

func fromOpenFoodFacts(o OpenFoodFactsNutriments) Nutrition {
	f := o.Nutriments
	n := Nutrition{
		Calories:   f.Get("energy-kcal_100g", "energy-kcal", "energy_kcal"),
		Protein:    f.Get("proteins_100g", "proteins"),
		Fat:        f.Get("fat_100g", "fat"),
		Carbs:      f.Get("carbohydrates_100g", "carbohydrates"),
		Fiber:      f.Get("fiber_100g", "fiber"),
		Sugar:      f.Get("sugars_100g", "sugars"),
		Sodium:     OpenFoodFactsSodiumMg(f),
		AddedSugar: f.Get("added-sugars_100g", "added-sugars"),
		Potassium:  f.Get("potassium_100g", "potassium") * 1000,
		Phosphorus: f.Get("phosphorus_100g", "phosphorus") * 1000,
	}
	if o.ServingQuantity > 0 {
		qty := o.ServingQuantity
		n.ServingSize = &qty
		n.ServingSizeUnit = o.ServingUnit
	}
	return n
}

// OpenFoodFactsSodiumMg 鈉(g)優先換算為 mg；沒有鈉欄位時由食鹽(g)推算
func OpenFoodFactsSodiumMg(f Fields) float64 {
	if sodium, ok := f.First("sodium_100g", "sodium"); ok {
		return sodium * 1000
	}
	if salt, ok := f.First("salt_100g", "salt"); ok {
		return salt * saltToSodiumMg
	}
	return 0
}

func fromEdamam(e EdamamRecipe) Nutrition {
	servings := e.Yield
	if servings <= 0 {
		servings = 1
	}
	per := func(keys ...string) float64 {
		for _, k := range keys {
			if q, ok := e.TotalNutrients[k]; ok {
				return q.Quantity / servings
			}
		}
		return 0
	}
	return Nutrition{
		Calories:   per("ENERC_KCAL"),
		Protein:    per("PROCNT"),
		Fat:        per("FAT"),
		Carbs:      per("CHOCDF", "CHOCDF.net"),
		Fiber:      per("FIBTG"),
		Sugar:      per("SUGAR"),
		Sodium:     per("NA"),
		AddedSugar: per("SUGAR.added"),
		Potassium:  per("K"),
		Phosphorus: per("P"),
	}
}
