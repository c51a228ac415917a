package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/markdown"
)

var (
	sentenceRe = regexp.MustCompile(`(?s).*?(?:[。！？!?]+|\.(?:\s|$)|$)`)
	hanRunRe   = regexp.MustCompile(`\p{Han}+`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
// Input is markdown; only paragraph and list text is considered, code blocks never are.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`[\p{Latin}\p{N}_]+(?:['’][\p{Latin}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize returns a short summary by ranking sentences using token frequency.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := s.sentences(text)
	if len(sentences) == 0 {
		return "", nil
	}
	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	// Normalize frequencies
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	// Score sentences
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		sscore := 0.0
		for _, tok := range toks {
			sscore += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Selected sentences keep document order.
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

// sentences collects prose sentences from paragraph and list blocks.
func (s *FrequencySummarizer) sentences(text string) []string {
	var prose []string
	for _, b := range markdown.ToBlocks(text) {
		switch b.Kind {
		case markdown.BlockParagraph:
			prose = append(prose, b.Text)
		case markdown.BlockList:
			prose = append(prose, b.Items...)
		}
	}
	var out []string
	for _, p := range prose {
		for _, sent := range sentenceRe.FindAllString(strings.ReplaceAll(p, "\n", " "), -1) {
			if sent = strings.TrimSpace(sent); sent != "" {
				out = append(out, sent)
			}
		}
	}
	return out
}

// tokens returns lower-cased words without stopwords plus Han bigrams.
func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, w := range s.tokenPattern.FindAllString(lower, -1) {
		if _, stop := s.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	for _, run := range hanRunRe.FindAllString(lower, -1) {
		rs := []rune(run)
		if len(rs) == 1 {
			out = append(out, run)
			continue
		}
		for i := 0; i+1 < len(rs); i++ {
			out = append(out, string(rs[i:i+2]))
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
