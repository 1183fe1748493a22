package knowledge

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// SplitChunks cuts text into fixed-width overlapping windows. Each chunk is
// chunkSize runes except possibly the last; consecutive chunks share overlap
// runes, so the stride is chunkSize-overlap. Boundaries ignore words and
// sentences on purpose.
func SplitChunks(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	stride := chunkSize - overlap
	chunks := make([]string, 0, (len(runes)+stride-1)/stride)
	for i := 0; i < len(runes); i += stride {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
