package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestSplitShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, Split("hello world", 100))
	assert.Empty(t, Split("", 100))
}

func TestSplitGroupsParagraphs(t *testing.T) {
	text := "aaaa\n\nbbbb\n  \ncccc"
	chunks := Split(text, 12)
	require.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, chunks)
}

func TestSplitLongParagraphBySentence(t *testing.T) {
	text := "First sentence here. Second one follows! Third is a question? tail"
	chunks := Split(text, 25)
	assert.Equal(t, []string{
		"First sentence here.",
		"Second one follows!",
		"Third is a question?",
		"tail",
	}, chunks)
}

func TestSplitHardCutWithoutPunctuation(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks := Split(text, 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, chunks)
}

func TestSplitHardCutKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("é", 10) // 20 bytes
	chunks := Split(text, 5)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %q is not valid UTF-8", c)
		assert.LessOrEqual(t, len(c), 5)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitBoundsAndReconstruction(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Lorem ipsum dolor sit amet. Consectetur adipiscing elit! ")
		if i%5 == 4 {
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(strings.Repeat("z", 300))
	text := sb.String()

	for _, size := range []int{50, 120, 400, 4000} {
		chunks := Split(text, size)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), size)
		}
		assert.Equal(t, squash(text), squash(strings.Join(chunks, "")), "size %d", size)
	}
}

func TestChunksIsDeterministicAndRestartable(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma. ", 200)
	seq := Chunks(text, 64)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)
	assert.Equal(t, first, Split(text, 64))
}

func TestChunksStopsEarly(t *testing.T) {
	text := strings.Repeat("y", 1000)
	n := 0
	for range Chunks(text, 10) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}
