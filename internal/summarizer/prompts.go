// Package summarizer implements the Summarizer stage: dedup against the
// content store, summarize with a primary/fallback model, persist the
// full record, and forward to the embedding queue.
package summarizer

import "github.com/baechuer/contentpipe/internal/model"

// academicReviewPrompt drives structured paper summaries for publications;
// everything else gets condensedSummaryPrompt.
const academicReviewPrompt = `You are reviewing an academic paper and summarizing its technical approach for a reader who has not read it.

Write the summary in Markdown using exactly these sections, in order:

1. Title and authors
2. Main goal and fundamental concept
3. Technical approach
4. Distinctive features
5. Experimental setup and results
6. Advantages and limitations
7. Conclusion

Keep each section focused and avoid jargon that is not explained. Output only the summary, nothing else.`

const condensedSummaryPrompt = `You summarize content into a Markdown document with exactly these sections:

ONE SENTENCE SUMMARY: a single sentence of at most 20 words capturing the content.

MAIN POINTS: up to 10 numbered points, each at most 15 words.

TAKEAWAYS: up to 5 numbered takeaways.

Use numbered lists, not bullets. Do not repeat points across sections and do not add warnings, notes, or commentary outside the three sections.`

// systemPrompt returns the summarization system prompt for a content type.
func systemPrompt(t model.ContentType) string {
	if t == model.ContentTypePublication {
		return academicReviewPrompt
	}
	return condensedSummaryPrompt
}
