package retention

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/memcore-ai/memcore-go/pkg/llm"
)

const summarizePrompt = "Summarize these events into a stable long-term insight. Be concise."

// maxFallbackSources bounds the deterministic fallback summary length.
const maxFallbackSources = 3

// Summarizer condenses a cluster of episodic memories into one summary
// line. With a nil LLM provider it uses a deterministic join of the first
// member summaries, so consolidation works offline.
type Summarizer struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer. The provider may be nil.
func NewSummarizer(provider llm.Provider, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{provider: provider, logger: logger}
}

// Summarize produces the consolidated summary for a cluster. LLM failures
// fall back to the deterministic summary rather than failing the sweep.
func (s *Summarizer) Summarize(ctx context.Context, cluster *Cluster) string {
	if s.provider != nil {
		var b strings.Builder
		b.WriteString(summarizePrompt)
		b.WriteString("\n\n")
		for _, m := range cluster.Members {
			b.WriteString("- ")
			b.WriteString(m.Summary)
			b.WriteString("\n")
		}

		out, err := s.provider.Generate(ctx, b.String(), llm.WithMaxTokens(120))
		if err == nil {
			if trimmed := strings.TrimSpace(out); trimmed != "" {
				return trimmed
			}
		} else {
			s.logger.Warn("llm summarization failed, using fallback summary", zap.Error(err))
		}
	}
	return fallbackSummary(cluster)
}

// fallbackSummary joins the first few member summaries into one line.
func fallbackSummary(cluster *Cluster) string {
	parts := make([]string, 0, maxFallbackSources)
	for _, m := range cluster.Members {
		summary := strings.TrimSpace(m.Summary)
		if summary == "" {
			continue
		}
		parts = append(parts, summary)
		if len(parts) == maxFallbackSources {
			break
		}
	}
	if len(parts) == 0 {
		return "Consolidated memory"
	}
	return "Recurring pattern: " + strings.Join(parts, "; ")
}

// meanRetention averages the policy score over the cluster members.
func meanRetention(p Policy, cluster *Cluster, now time.Time) float64 {
	if len(cluster.Members) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range cluster.Members {
		sum += p.Score(m, now)
	}
	return sum / float64(len(cluster.Members))
}
