// Package classification decides whether a procedural act is peremptory
// (imposes a deadline on the party) or routine.  A keyword heuristic always
// produces an answer; a generative-model fallback refines low-confidence
// ones when available.
package classification

import (
	"context"
	"regexp"
	"strings"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ai"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/prometheus"
)

// aiThreshold is the heuristic confidence below which the model fallback is
// consulted.
const aiThreshold = 0.8

// deadlineMentionScore is added to the peremptory score when the text names
// an explicit term, the strongest single signal there is.
const deadlineMentionScore = 15

var deadlinePattern = regexp.MustCompile(`(?i)(\d+)\s*(días?|meses?)\s*(hábiles?|calendario)?`)

// Result is one classification verdict.
type Result struct {
	Type       string
	Confidence float64
	Reason     string
	Source     string
}

// AIClient is the model fallback.  Implemented by ai.Client.
type AIClient interface {
	Classify(ctx context.Context, actText string) (*ai.Verdict, error)
}

// Classifier never returns an error: the heuristic always yields a result,
// and every fallback failure degrades silently to it.
type Classifier struct {
	ai      AIClient // nil disables the fallback
	logger  logging.Logger
	metrics *prometheus.Metrics
}

// NewClassifier builds a classifier.  Pass a nil AIClient to run on the
// heuristic alone.
func NewClassifier(aiClient AIClient, log logging.Logger, metrics *prometheus.Metrics) *Classifier {
	return &Classifier{
		ai:      aiClient,
		logger:  log.Named("classification"),
		metrics: metrics,
	}
}

// Classify produces a verdict for one act.
func (c *Classifier) Classify(ctx context.Context, act *caserecord.ProceduralAct) Result {
	text := act.ClassificationText()
	result := classifyByKeywords(text)

	if result.Confidence >= aiThreshold || c.ai == nil {
		c.observe(result)
		return result
	}

	verdict, err := c.ai.Classify(ctx, text)
	if err != nil {
		// The heuristic result stands; fallback failure is never fatal.
		c.logger.Warn("ai classification degraded, keeping heuristic result",
			logging.String("heuristic_type", result.Type),
			logging.Float64("heuristic_confidence", result.Confidence),
			logging.Err(err),
		)
		if c.metrics != nil {
			c.metrics.AIFallbackTotal.WithLabelValues("degraded").Inc()
		}
		c.observe(result)
		return result
	}

	if c.metrics != nil {
		c.metrics.AIFallbackTotal.WithLabelValues("ok").Inc()
	}
	result = Result{
		Type:       verdict.Classification,
		Confidence: verdict.Confidence,
		Reason:     verdict.Reason,
		Source:     caserecord.SourceAI,
	}
	c.observe(result)
	return result
}

func (c *Classifier) observe(r Result) {
	if c.metrics != nil {
		c.metrics.ClassificationTotal.WithLabelValues(r.Source, r.Type).Inc()
	}
}

// classifyByKeywords scores the lowered text against both dictionaries.  The
// strictly greater score wins; ties, including the all-zero case, default to
// routine at low confidence.  Confidence is capped at 0.9 so a heuristic
// verdict never outranks an explicit model one.
func classifyByKeywords(text string) Result {
	lowered := strings.ToLower(text)

	peremptoryScore, peremptoryHits := score(lowered, peremptoryKeywords)
	routineScore, routineHits := score(lowered, routineKeywords)

	if deadlinePattern.MatchString(text) {
		peremptoryScore += deadlineMentionScore
		peremptoryHits = append(peremptoryHits, "mención de plazo específico")
	}

	total := float64(peremptoryScore + routineScore + 1)
	switch {
	case peremptoryScore > routineScore:
		return Result{
			Type:       caserecord.ClassificationPeremptory,
			Confidence: min(0.9, float64(peremptoryScore)/total),
			Reason:     "Palabras clave encontradas: " + strings.Join(peremptoryHits, ", "),
			Source:     caserecord.SourceHeuristic,
		}
	case routineScore > peremptoryScore:
		return Result{
			Type:       caserecord.ClassificationRoutine,
			Confidence: min(0.9, float64(routineScore)/total),
			Reason:     "Palabras clave encontradas: " + strings.Join(routineHits, ", "),
			Source:     caserecord.SourceHeuristic,
		}
	default:
		return Result{
			Type:       caserecord.ClassificationRoutine,
			Confidence: 0.3,
			Reason:     "No se encontraron palabras clave significativas",
			Source:     caserecord.SourceHeuristic,
		}
	}
}

func score(lowered string, keywords []weightedKeyword) (int, []string) {
	var total int
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lowered, kw.phrase) {
			total += kw.weight
			hits = append(hits, kw.phrase)
		}
	}
	return total, hits
}
