package generate

import (
	"fmt"
	"strings"

	"github.com/cognicore/semantica/pkg/semantica/analysis"
	"github.com/cognicore/semantica/pkg/semantica/score"
)

// TermGoal is a term with its density target and the occurrence span it
// implies at the target length.
type TermGoal struct {
	Term        string             `json:"term"`
	Density     analysis.Range     `json:"density"`
	Occurrences analysis.WordRange `json:"occurrences"`
}

// Plan is everything the generation prompt asks for.
type Plan struct {
	Keywords    []string           `json:"keywords"`
	Words       int                `json:"target_words"`
	MinRequired int                `json:"min_required"`
	Recommended analysis.WordRange `json:"recommended_range"`
	Terms       []TermGoal         `json:"terms"`
	Structure   analysis.Structure `json:"structure"`
}

// NewPlan derives generation targets from a report. The target length is
// the midpoint of the recommended range, never below the required minimum.
func NewPlan(keywords []string, rep *analysis.Report, minWords int) Plan {
	p := Plan{
		Keywords:    keywords,
		MinRequired: rep.MinRequired(minWords),
		Recommended: rep.Length.Recommended,
		Structure:   rep.Structure,
	}
	p.Words = max(rep.Length.Recommended.Midpoint(), p.MinRequired)
	for _, t := range rep.SemanticKeywords {
		if strings.TrimSpace(t.Term) == "" {
			continue
		}
		p.Terms = append(p.Terms, TermGoal{
			Term:        t.Term,
			Density:     t.Density,
			Occurrences: analysis.Occurrences(t.Density, p.Words),
		})
	}
	return p
}

func (p Plan) prompt() string {
	var b strings.Builder
	b.WriteString("Write a complete, professional HTML article in Spanish that follows every guideline below.\n")
	fmt.Fprintf(&b, "Total length: about %d words (minimum %d", p.Words, p.MinRequired)
	if !p.Recommended.IsZero() {
		fmt.Fprintf(&b, ", recommended %s", p.Recommended)
	}
	b.WriteString(").\n")
	if len(p.Terms) > 0 {
		b.WriteString("Term targets:\n")
		for _, t := range p.Terms {
			fmt.Fprintf(&b, "- %q: %s", t.Term, t.Density)
			if !t.Occurrences.IsZero() {
				fmt.Fprintf(&b, " (%s mentions)", t.Occurrences)
			}
			b.WriteByte('\n')
		}
	}
	if p.Structure.H1 != "" {
		fmt.Fprintf(&b, "H1: %s\n", p.Structure.H1)
	}
	if len(p.Structure.Sections) > 0 {
		b.WriteString("Outline:\n")
		for _, s := range p.Structure.Sections {
			line := "- " + s.H2
			if len(s.H3) > 0 {
				line += " | H3: " + strings.Join(s.H3, ", ")
			}
			if s.Words > 0 {
				line += fmt.Sprintf(" | %d words", s.Words)
			}
			b.WriteString(line + "\n")
		}
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&b, "Main keywords: %s.\n", strings.Join(p.Keywords, ", "))
	}
	b.WriteString("Return only valid HTML with headings, paragraphs and lists where they fit. No explanations or markdown.")
	return b.String()
}

// Unmet lists, one item per constraint, what an evaluation missed.
func Unmet(p Plan, ev *score.Result, readabilityFloor float64) []string {
	var items []string
	if !ev.LengthOK {
		if ev.WordCount < ev.MinRequired {
			items = append(items, fmt.Sprintf("Length: the draft has %d words; write at least %d, ideally about %d.", ev.WordCount, ev.MinRequired, p.Words))
		} else {
			items = append(items, fmt.Sprintf("Length: the draft has %d words; keep it under %d.", ev.WordCount, ev.MaxRecommended))
		}
	}
	for _, t := range ev.Terms {
		if t.OK {
			continue
		}
		item := fmt.Sprintf("Density of %q: target %s", t.Term, t.Target)
		if !t.Suggested.IsZero() {
			item += fmt.Sprintf(" (%s mentions)", t.Suggested)
		}
		item += fmt.Sprintf(", currently %g%% (%d mentions).", t.Density, t.Occurrences)
		items = append(items, item)
	}
	if ev.Readability.Score < readabilityFloor {
		items = append(items, fmt.Sprintf("Readability: reach at least %g Flesch (currently %.1f); use shorter sentences and common words.", readabilityFloor, ev.Readability.Score))
	}
	return items
}

func repairPrompt(items []string, html string) string {
	var b strings.Builder
	b.WriteString("Revise this HTML article. Keep its language and topic. Fix every unmet requirement:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	b.WriteString("Spread the terms evenly through the article and use synonyms elsewhere. ")
	b.WriteString("Return only valid HTML. No explanations or markdown.\n\nHTML:\n")
	b.WriteString(html)
	b.WriteByte('\n')
	return b.String()
}
