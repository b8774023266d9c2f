// Package embedder implements the Embedder stage: chunk the raw content
// and summary, hand them to the vector store, and terminate the pipeline.
package embedder

import "strings"

const (
	chunkSize    = 500
	chunkOverlap = 50
)

// splitSeparators: try paragraph breaks first, then lines, then words,
// falling back to raw characters only as a last resort.
var splitSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk splits text into chunks of about chunkSize characters with
// chunkOverlap characters of overlap between consecutive chunks, preferring
// to break on the largest available separator (paragraph > line > word >
// character). Each chunk after the first starts with the last chunkOverlap
// characters of the previous one, so a chunk can run past chunkSize by up to
// that overlap (plus a trailing separator).
func Chunk(text string) []string {
	if text == "" {
		return nil
	}
	pieces := split(text, splitSeparators)
	return merge(pieces)
}

func split(text string, seps []string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text)
	}

	sep, rest := seps[0], seps[1:]
	if sep == "" {
		return hardSplit(text)
	}

	var parts []string
	for _, p := range strings.Split(text, sep) {
		parts = append(parts, p)
	}

	var out []string
	for i, p := range parts {
		if len(p) <= chunkSize {
			out = append(out, p)
		} else {
			out = append(out, split(p, rest)...)
		}
		if i < len(parts)-1 {
			out[len(out)-1] += sep
		}
	}
	return out
}

func hardSplit(text string) []string {
	var out []string
	for len(text) > chunkSize {
		out = append(out, text[:chunkSize])
		text = text[chunkSize:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// merge coalesces the split pieces back into chunks, starting a new chunk
// when the next piece would push the current one past chunkSize, and
// carrying chunkOverlap characters of trailing context from one chunk into
// the next.
func merge(pieces []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
		}
	}

	for _, piece := range pieces {
		if current.Len()+len(piece) > chunkSize && current.Len() > 0 {
			flush()
			prev := chunks[len(chunks)-1]
			overlapStart := len(prev) - chunkOverlap
			if overlapStart < 0 {
				overlapStart = 0
			}
			current.Reset()
			current.WriteString(prev[overlapStart:])
		}
		current.WriteString(piece)
	}
	flush()
	return chunks
}
