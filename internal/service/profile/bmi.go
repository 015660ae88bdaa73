package profile

import "math"

// BMI categories.
const (
	BMIUnderweight = "Insuffisance pondérale"
	BMINormal      = "Corpulence normale"
	BMIOverweight  = "Surpoids"
	BMIObese       = "Obésité"
)

// Goals with dedicated advice.
const (
	GoalWeightLoss  = "Perte de poids"
	GoalMuscleGain  = "Gain musculaire"
	GoalMassGain    = "Prise de masse"
	GoalMaintenance = "Maintien"
)

var goalAdvice = map[string][]string{
	GoalWeightLoss: {
		"Priorisez légumes & fibres",
		"Diminuez le sucre & aliments transformés",
		"Optez pour des portions maîtrisées",
	},
	GoalMuscleGain: {
		"Augmentez protéines & entraînement",
		"3–4 séances musculation/semaine",
		"Collations protéinées stratégiques",
	},
	GoalMassGain: {
		"Surplus calorique intelligent",
		"Riz, pâtes complètes, huiles saines",
		"Protéines à chaque repas",
	},
	GoalMaintenance: {
		"Continuez votre équilibre actuel",
		"Activité physique régulière",
		"Contrôle des portions",
	},
}

// Goals is the body-metrics summary shown next to the profile.
type Goals struct {
	BMI      float64  `json:"bmi,omitempty"`
	Category string   `json:"category,omitempty"`
	Goal     string   `json:"goal"`
	Advice   []string `json:"advice"`
}

// BMI returns weight / (height/100)². Height is in centimetres and weight in
// kilograms. ok is false until both are set.
func BMI(heightCM, weightKG float64) (bmi float64, ok bool) {
	if heightCM <= 0 || weightKG <= 0 {
		return 0, false
	}
	h := heightCM / 100
	return weightKG / (h * h), true
}

// BMICategory buckets a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// GoalAdvice returns the recommendations for a goal, empty for unknown goals.
func GoalAdvice(goal string) []string {
	advice := goalAdvice[goal]
	out := make([]string, len(advice))
	copy(out, advice)
	return out
}

// Summarize computes the goals summary for a stored profile. The category is
// taken from the exact BMI; the reported value is rounded to one decimal.
func Summarize(heightCM, weightKG float64, goal string) Goals {
	g := Goals{Goal: goal, Advice: GoalAdvice(goal)}
	if bmi, ok := BMI(heightCM, weightKG); ok {
		g.BMI = math.Round(bmi*10) / 10
		g.Category = BMICategory(bmi)
	}
	return g
}
