package usecase

import (
	"strings"

	"github.com/user/discovery-service/internal/entity"
	"github.com/user/discovery-service/internal/repository"
)

// ScoreInput carries whatever signals are available for one page. Page and
// Extraction may each be nil; absence of signal defaults both scores to 0.
type ScoreInput struct {
	Topic      string
	Page       *entity.Page
	Extraction *repository.ExtractResult
}

// Scores are the per-page quality and relevance values, each in [0, 1] and
// never null: no matched rule means 0.
type Scores struct {
	Quality   float64
	Relevance float64
}

const (
	scoreKindQuality   = "quality"
	scoreKindRelevance = "relevance"
)

type scoreRule struct {
	id     string
	kind   string
	weight func(in ScoreInput) float64
}

var scoreRules = []scoreRule{
	{
		id:   "quality_http_ok",
		kind: scoreKindQuality,
		weight: func(in ScoreInput) float64 {
			if in.Page != nil && in.Page.HTTPStatus >= 200 && in.Page.HTTPStatus < 300 {
				return 0.2
			}
			return 0
		},
	},
	{
		id:   "quality_text_substantial",
		kind: scoreKindQuality,
		weight: func(in ScoreInput) float64 {
			if in.Page != nil && len(in.Page.ExtractedText) >= 1000 {
				return 0.3
			}
			return 0
		},
	},
	{
		id:   "quality_facts_present",
		kind: scoreKindQuality,
		weight: func(in ScoreInput) float64 {
			if in.Extraction != nil && len(in.Extraction.TopFacts) >= 3 {
				return 0.3
			}
			return 0
		},
	},
	{
		id:   "quality_summary_present",
		kind: scoreKindQuality,
		weight: func(in ScoreInput) float64 {
			if in.Extraction != nil && in.Extraction.Summary != "" {
				return 0.2
			}
			return 0
		},
	},
	{
		id:   "relevance_topic_in_title",
		kind: scoreKindRelevance,
		weight: func(in ScoreInput) float64 {
			if in.Page != nil && in.Topic != "" &&
				strings.Contains(strings.ToLower(pageTitle(in)), strings.ToLower(in.Topic)) {
				return 0.3
			}
			return 0
		},
	},
	{
		id:   "relevance_topic_in_text",
		kind: scoreKindRelevance,
		weight: func(in ScoreInput) float64 {
			if in.Page != nil && in.Topic != "" &&
				strings.Contains(strings.ToLower(in.Page.ExtractedText), strings.ToLower(in.Topic)) {
				return 0.3
			}
			return 0
		},
	},
	{
		id:   "relevance_model_confidence",
		kind: scoreKindRelevance,
		weight: func(in ScoreInput) float64 {
			if in.Extraction != nil && in.Extraction.Confidence > 0 {
				return 0.4 * in.Extraction.Confidence
			}
			return 0
		},
	},
}

// scoreContent evaluates every rule against the available signals and
// returns the clamped scores plus the ids of the rules that fired.
func scoreContent(in ScoreInput) (Scores, []string) {
	var s Scores
	matched := []string{}
	for _, rule := range scoreRules {
		w := rule.weight(in)
		if w <= 0 {
			continue
		}
		matched = append(matched, rule.id)
		switch rule.kind {
		case scoreKindQuality:
			s.Quality += w
		case scoreKindRelevance:
			s.Relevance += w
		}
	}
	s.Quality = clamp01(s.Quality)
	s.Relevance = clamp01(s.Relevance)
	return s, matched
}

func pageTitle(in ScoreInput) string {
	if in.Extraction != nil && in.Extraction.Title != "" {
		return in.Extraction.Title
	}
	// Fall back to the title passage of extracted text; pages carry no
	// dedicated title column.
	if len(in.Page.ExtractedText) > 120 {
		return in.Page.ExtractedText[:120]
	}
	return in.Page.ExtractedText
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
