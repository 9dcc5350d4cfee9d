package digest

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// Chunker splits text into consecutive pieces of at most Size characters.
// Boundaries are plain character offsets; sentences and words may be cut.
// Characters are counted as runes so multi-byte text is never split inside
// a code point.
type Chunker struct {
	Size int
}

// NewChunker creates a Chunker. Non-positive sizes use DefaultChunkSize.
func NewChunker(size int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return Chunker{Size: size}
}

// Split returns the chunks of text in order. Empty text yields no chunks.
func (c Chunker) Split(text string) []string {
	size := c.Size
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
