package copilot

import (
	"fmt"
	"strings"

	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/pkg/utils"
)

// maxExcerptChars bounds each excerpt so one oversized chunk cannot crowd
// the rest of the context out of the prompt.
const maxExcerptChars = 2000

const systemPrompt = `You are an expert production-line copilot for a metal forming plant. You help operators understand defect patterns by correlating line telemetry with historical incidents and maintenance records.

Analysis rules, follow them strictly:

1. Root cause: trace the causal chain to the deepest cause the context supports. If temperature is high, explain why it is high (for example, coolant flow dropped because a valve drifted). Never stop at the symptom.

2. Historical correlation: check the document excerpts for earlier incidents with a matching sensor pattern. When one matches, cite the report by ID and date and compare the two patterns.

3. Specific references: name equipment IDs, valve numbers, work orders, and SOP procedure numbers, for example "inspect cooling valve V-17 per SOP-002 section 6". Never give generic advice like "adjust heating elements".

4. Citations: for every claim taken from a document excerpt, include the source filename in square brackets, e.g. [SOP-002.md].

5. Format: open with a one or two sentence summary, then cover what happened (with timestamps), the root cause chain, any historical precedent, and recommended actions. Keep the whole answer under 300 words.

Answer ONLY from the telemetry summary, recent defect events, and document excerpts provided below. If the context does not answer the question, say so plainly instead of guessing.`

// buildPrompt assembles the user prompt. Sections appear in a fixed order
// and excerpts keep their retrieval order, so the same inputs always
// produce the same prompt.
func buildPrompt(question string, stats *models.SummaryStats, defects []*models.DefectEvent, chunks []*models.ScoredChunk, th models.SensorThresholds) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Telemetry summary (line %s, last %s)\n", stats.LineID, stats.WindowLabel)
	fmt.Fprintf(&b, "- samples: %d (latest %s)\n", stats.SampleCount, stats.LatestTimestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- avg zone temps (C): preheat %.1f, forming %.1f, cooling %.1f\n",
		stats.AvgPreheatTempC, stats.AvgFormingTempC, stats.AvgCoolingTempC)
	fmt.Fprintf(&b, "- peak forming temp: %.1f C at %s%s\n",
		stats.PeakFormingTempC, stats.PeakFormingTempAt.Format("15:04:05"),
		tempAnnotation(stats.PeakFormingTempC, th))
	fmt.Fprintf(&b, "- coolant flow: avg %.1f%%, min %.1f%% (nominal %.0f%%)\n",
		stats.AvgCoolantFlowPct, stats.MinCoolantFlowPct, th.NominalCoolantFlowPct)
	fmt.Fprintf(&b, "- avg line speed: %.1f m/min (nominal %.0f m/min)\n",
		stats.AvgLineSpeedMPM, th.NominalLineSpeedMPM)
	fmt.Fprintf(&b, "- defect rate: %.2f%% (%s)\n", stats.DefectRatePct, stats.TrendDirection)

	b.WriteString("\n## Recent defect events\n")
	if len(defects) == 0 {
		b.WriteString("(none recorded)\n")
	}
	for _, d := range defects {
		fmt.Fprintf(&b, "- %s  %s  severity=%s  rolling_rate=%.2f%%  forming=%.1fC coolant=%.1f%% speed=%.1fm/min\n",
			d.Timestamp.Format("2006-01-02 15:04:05"), d.DefectType, d.Severity, d.RollingRatePct,
			d.Snapshot.FormingZoneTempC, d.Snapshot.CoolantFlowPct, d.Snapshot.LineSpeedMPM)
	}

	b.WriteString("\n## Document excerpts\n")
	if len(chunks) == 0 {
		b.WriteString("(no relevant documents retrieved)\n")
	}
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s#%d] (relevance %.3f)\n%s\n\n",
			c.Chunk.SourceDocument, c.Chunk.ChunkIndex, c.Score,
			utils.Truncate(strings.TrimSpace(c.Chunk.Content), maxExcerptChars))
	}

	fmt.Fprintf(&b, "## Question\n%s\n", question)
	return b.String()
}

// tempAnnotation flags a peak forming temperature that crossed the warning
// or critical limit. Returns "" while the peak stays below warning.
func tempAnnotation(peakC float64, th models.SensorThresholds) string {
	switch {
	case peakC >= th.TempCriticalC:
		return fmt.Sprintf(" (%.1f C above the %.1f C CRITICAL limit)", peakC-th.TempCriticalC, th.TempCriticalC)
	case peakC >= th.TempWarningC:
		return fmt.Sprintf(" (%.1f C above the %.1f C warning limit)", peakC-th.TempWarningC, th.TempWarningC)
	default:
		return ""
	}
}
