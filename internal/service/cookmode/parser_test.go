package cookmode

import (
	"reflect"
	"testing"
)

func TestParse_Sections(t *testing.T) {
	text := "## Omelette aux champignons\r\n" +
		"Temps : 15 min\n" +
		"### Ingrédients\n" +
		"- Sel\n" +
		"• Poivre\n" +
		"- 3 œufs\n" +
		"### Préparation\n" +
		"1. Battre les œufs.\n" +
		"2. Cuire à la poêle.\n"

	parsed := Parse(text)

	if parsed.EstimatedMinutes != 15 {
		t.Errorf("Expected 15 minutes, got %d", parsed.EstimatedMinutes)
	}
	wantIngredients := []string{"Sel", "Poivre", "œufs"}
	if !reflect.DeepEqual(parsed.Ingredients, wantIngredients) {
		t.Errorf("Expected ingredients %v, got %v", wantIngredients, parsed.Ingredients)
	}
	wantSteps := []string{"1. Battre les œufs.", "2. Cuire à la poêle."}
	if !reflect.DeepEqual(parsed.Steps, wantSteps) {
		t.Errorf("Expected steps %v, got %v", wantSteps, parsed.Steps)
	}
}

func TestParse_ListFallbacks(t *testing.T) {
	text := "Pâtes rapides\n" +
		"- pâtes\n" +
		"- tomate\n" +
		"1) Faire bouillir l'eau\n" +
		"Étape 2 : Ajouter les pâtes\n"

	parsed := Parse(text)

	if parsed.EstimatedMinutes != DefaultMinutes {
		t.Errorf("Expected default %d minutes, got %d", DefaultMinutes, parsed.EstimatedMinutes)
	}
	if want := []string{"pâtes", "tomate"}; !reflect.DeepEqual(parsed.Ingredients, want) {
		t.Errorf("Expected ingredients %v, got %v", want, parsed.Ingredients)
	}
	if want := []string{"1) Faire bouillir l'eau", "Ajouter les pâtes"}; !reflect.DeepEqual(parsed.Steps, want) {
		t.Errorf("Expected steps %v, got %v", want, parsed.Steps)
	}
}

func TestParse_Placeholders(t *testing.T) {
	parsed := Parse("")

	if parsed.EstimatedMinutes != DefaultMinutes {
		t.Errorf("Expected default %d minutes, got %d", DefaultMinutes, parsed.EstimatedMinutes)
	}
	if len(parsed.Ingredients) != 1 || parsed.Ingredients[0] != IngredientsPlaceholder {
		t.Errorf("Expected ingredient placeholder, got %v", parsed.Ingredients)
	}
	if len(parsed.Steps) != 1 || parsed.Steps[0] != StepsPlaceholder {
		t.Errorf("Expected step placeholder, got %v", parsed.Steps)
	}
}

func TestParse_EstimatedMinutes(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Temps de préparation - 45 minutes", 45},
		{"TEMPS DE CUISSON: 30 min", 30},
		{"Temps : 300 minutes", DefaultMinutes},
		{"Temps : 0 min", DefaultMinutes},
		{"Cuire 10 minutes", DefaultMinutes},
	}

	for _, tc := range tests {
		if got := Parse(tc.text).EstimatedMinutes; got != tc.want {
			t.Errorf("Parse(%q): expected %d minutes, got %d", tc.text, tc.want, got)
		}
	}
}
