package emotion

import "strings"

// DefaultMaxWords is the chunk word budget of the emotion model's input window.
const DefaultMaxWords = 512

const (
	sentenceSep = "."
	chunkJoin   = ". "
)

// Split 将文档按句号切分并合并为不超过 maxWords 个词的块
// 用途：
// - 让固定输入长度的分类器处理任意长度的文档
// 说明：
// - 按字面 "." 朴素切分，不处理缩写、小数与省略号，空片段保留
// - 单句超过 maxWords 时独立成块，不再继续切分
// - 每个块以 ". " 连接句子并追加结尾 "."
func Split(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var (
		chunks  []string
		current []string
		words   int
	)
	for _, sentence := range strings.Split(text, sentenceSep) {
		n := len(strings.Fields(sentence))
		if words+n <= maxWords || len(current) == 0 {
			current = append(current, sentence)
			words += n
			continue
		}
		chunks = append(chunks, joinChunk(current))
		current = []string{sentence}
		words = n
	}
	if len(current) > 0 {
		chunks = append(chunks, joinChunk(current))
	}
	return chunks
}

func joinChunk(sentences []string) string {
	return strings.Join(sentences, chunkJoin) + sentenceSep
}

// Fragments recovers the sentence fragments a chunk produced by Split was built from.
func Fragments(chunk string) []string {
	return strings.Split(strings.TrimSuffix(chunk, sentenceSep), chunkJoin)
}

// WordCount uses the same whitespace tokenization as Split.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ChunkWordCount counts the words of a chunk's fragments, ignoring the
// periods Split inserted.
func ChunkWordCount(chunk string) int {
	n := 0
	for _, f := range Fragments(chunk) {
		n += WordCount(f)
	}
	return n
}
