package catalog

import (
	"regexp"
	"strings"
)

var (
	// leading run of model characters up to the first standalone number
	modelLeadingRun = regexp.MustCompile(`^([A-Za-z0-9\-/+.\s]+?)(?:\s+\d|$)`)
	// everything before the first parenthesis
	modelBeforeParen = regexp.MustCompile(`^([^()]+?)(?:\s*\(|$)`)
	trailingNumbers  = regexp.MustCompile(`\s+\d+.*$`)
	numericToken     = regexp.MustCompile(`^\d+[/\d]*$`)
	dimensionToken   = regexp.MustCompile(`^\d+[Rr]\d+`)
	hasLetter        = regexp.MustCompile(`[A-Za-z]`)
)

const maxModelWords = 3

// ModelMethod identifies which heuristic produced a model name.
type ModelMethod int

const (
	ModelNone ModelMethod = iota
	ModelLeadingRun
	ModelBeforeParen
	ModelWords
)

// ExtractModel pulls a model name out of a free-text product note, e.g.
// "SL-6 106/104 N ( C C A 70dB )" -> "SL-6" and
// "ADVANTEX SUV TR259 215/70R16" -> "ADVANTEX SUV TR259".
// The heuristics are tried in order and the first non-empty result wins.
func ExtractModel(note string) (string, ModelMethod) {
	note = strings.TrimSpace(note)
	if note == "" {
		return "", ModelNone
	}

	if m := modelLeadingRun.FindStringSubmatch(note); m != nil {
		if model := trimModel(m[1]); model != "" {
			return model, ModelLeadingRun
		}
	}

	if m := modelBeforeParen.FindStringSubmatch(note); m != nil {
		model := trailingNumbers.ReplaceAllString(strings.TrimSpace(m[1]), "")
		if model = trimModel(model); model != "" {
			return model, ModelBeforeParen
		}
	}

	var words []string
	for _, word := range strings.Split(note, " ") {
		word = strings.TrimSpace(word)
		if numericToken.MatchString(word) || dimensionToken.MatchString(word) {
			break
		}
		if hasLetter.MatchString(word) {
			words = append(words, word)
			if len(words) >= maxModelWords {
				break
			}
		}
	}
	if len(words) > 0 {
		return strings.Join(words, " "), ModelWords
	}
	return "", ModelNone
}

func trimModel(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " -/")
}

// BuildTitle combines producer and model, falling back to the producer
// alone, the model alone, the feed name, and finally "Product <sku>".
func BuildTitle(producer, model, name, sku string) string {
	producer = strings.TrimSpace(producer)
	model = strings.TrimSpace(model)
	switch {
	case producer != "" && model != "":
		return producer + " " + model
	case producer != "":
		return producer
	case model != "":
		return model
	case strings.TrimSpace(name) != "":
		return strings.TrimSpace(name)
	default:
		return "Product " + sku
	}
}
