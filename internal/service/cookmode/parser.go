package cookmode

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultMinutes is used when the text announces no usable time.
const DefaultMinutes = 20

// Placeholders returned when a list cannot be detected.
const (
	IngredientsPlaceholder = "(Ingrédients non détectés automatiquement)"
	StepsPlaceholder       = "(Étapes non détectées automatiquement)"
)

const maxFallbackIngredients = 12

var (
	timePattern       = regexp.MustCompile(`(?i)(temps(?:\s+de\s+(?:préparation|cuisson))?\s*[:\-]?\s*)(\d{1,3})\s*(min|minutes)`)
	ingredientHeading = regexp.MustCompile(`(?i)ingr[ée]dients?`)
	stepsHeading      = regexp.MustCompile(`(?i)(préparation|preparation|étapes|etapes|instructions)`)
	bulletPrefix      = regexp.MustCompile(`^[-•\d).\s]+`)
	bulletLine        = regexp.MustCompile(`^[-•]`)
	numberedLine      = regexp.MustCompile(`^\d+[).]`)
	stepLine          = regexp.MustCompile(`(?i)^(étape|step)\s*\d+`)
	stepPrefix        = regexp.MustCompile(`(?i)^(étape|step)\s*\d+\s*[:\-]?\s*`)
)

// Parsed is the cook-mode view of a generated recipe.
type Parsed struct {
	EstimatedMinutes int      `json:"estimatedMinutes"`
	Ingredients      []string `json:"ingredients"`
	Steps            []string `json:"steps"`
}

// Parse splits free recipe text into a timer, an ingredient checklist and a
// step checklist. It never fails: undetected lists get a placeholder line.
func Parse(text string) Parsed {
	clean := strings.ReplaceAll(text, "\r", "")

	parsed := Parsed{EstimatedMinutes: estimateMinutes(clean)}
	ingBlock, prepBlock := sections(clean)

	for _, line := range splitLines(ingBlock) {
		if ingredientHeading.MatchString(line) || headingMarks(line) {
			continue
		}
		if item := normalizeBullet(line); len([]rune(item)) >= 2 {
			parsed.Ingredients = append(parsed.Ingredients, item)
		}
	}
	for _, line := range splitLines(prepBlock) {
		if !stepsHeading.MatchString(line) && !headingMarks(line) {
			parsed.Steps = append(parsed.Steps, line)
		}
	}

	if len(parsed.Ingredients) == 0 {
		for _, line := range splitLines(clean) {
			if bulletLine.MatchString(line) {
				parsed.Ingredients = append(parsed.Ingredients, normalizeBullet(line))
			}
			if len(parsed.Ingredients) == maxFallbackIngredients {
				break
			}
		}
	}
	if len(parsed.Steps) == 0 {
		for _, line := range splitLines(clean) {
			if numberedLine.MatchString(line) || stepLine.MatchString(line) {
				parsed.Steps = append(parsed.Steps, strings.TrimSpace(stepPrefix.ReplaceAllString(line, "")))
			}
		}
	}

	if len(parsed.Ingredients) == 0 {
		parsed.Ingredients = []string{IngredientsPlaceholder}
	}
	if len(parsed.Steps) == 0 {
		parsed.Steps = []string{StepsPlaceholder}
	}
	return parsed
}

func estimateMinutes(text string) int {
	match := timePattern.FindStringSubmatch(text)
	if match == nil {
		return DefaultMinutes
	}
	n, err := strconv.Atoi(match[2])
	if err != nil || n <= 0 || n >= 240 {
		return DefaultMinutes
	}
	return n
}

// sections cuts the ingredient and preparation blocks at their first heading.
func sections(text string) (ingBlock, prepBlock string) {
	ing := ingredientHeading.FindStringIndex(text)
	prep := stepsHeading.FindStringIndex(text)

	switch {
	case ing != nil && prep != nil:
		if ing[0] < prep[0] {
			return text[ing[0]:prep[0]], text[prep[0]:]
		}
		return text[ing[0]:], text[prep[0]:ing[0]]
	case ing != nil:
		return text[ing[0]:], ""
	case prep != nil:
		return "", text[prep[0]:]
	}
	return "", ""
}

func splitLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// headingMarks reports a line made only of markdown heading marks, left over
// when a block is cut right before the next heading's text.
func headingMarks(line string) bool {
	return strings.Trim(line, "# ") == ""
}

func normalizeBullet(line string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
}
