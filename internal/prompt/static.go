package prompt

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticEnhancer is the local fallback when no LLM key is configured. It
// never fails: the prompt is title-cased and framed with stock quality and
// composition descriptors.
type StaticEnhancer struct {
	titler cases.Caser
}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{titler: cases.Title(language.English)}
}

var staticDescriptors = []string{
	"highly detailed",
	"professional lighting",
	"sharp focus",
	"rich color palette",
	"8k resolution",
}

func (e *StaticEnhancer) Enhance(_ context.Context, prompt string) (string, error) {
	subject := strings.TrimSpace(prompt)
	if subject == "" {
		subject = "An Evocative Scene"
	} else {
		subject = e.titler.String(subject)
	}
	return subject + ", " + strings.Join(staticDescriptors, ", "), nil
}

var _ Enhancer = (*StaticEnhancer)(nil)
