package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrMalformedJSON means a provider answered but the answer held no usable
// JSON object.
var ErrMalformedJSON = errors.New("malformed JSON in generated text")

var codeFenceRe = regexp.MustCompile("(?i)```(?:json)?")

// ExtractJSON decodes the JSON object embedded in text into v. Code fences
// and any prose around the outermost braces are ignored; a broken object
// gets one repair attempt.
func ExtractJSON(text string, v any) error {
	s := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))
	first, last := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if first < 0 {
		return fmt.Errorf("%w: no object found", ErrMalformedJSON)
	}
	if last > first {
		s = s[first : last+1]
	} else {
		s = s[first:]
	}

	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(s)
	if repairErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
