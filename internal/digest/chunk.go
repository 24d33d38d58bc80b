package digest

// DefaultChunkSize bounds how many topic blocks go into one map call.
const DefaultChunkSize = 100

// Chunk splits items into contiguous slices of at most size elements.
// Every item lands in exactly one chunk; the last chunk may be shorter.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
