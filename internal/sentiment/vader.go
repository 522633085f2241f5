package sentiment

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const VADER_THRESHOLD = 0.20

var (
	analyzer    = govader.NewSentimentIntensityAnalyzer()
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := tagPattern.ReplaceAllString(string(output), " ")
	plainText = strings.Join(strings.Fields(plainText), " ")

	return RemoveLinks(plainText)
}

func AnalyzeWithVADER(text string) (float64, string) {
	plainText := ConvertMarkdownToText(text)

	score := analyzer.PolarityScores(plainText).Compound

	var label string
	if score >= VADER_THRESHOLD {
		label = LABEL_POSITIVE
	} else if score <= -VADER_THRESHOLD {
		label = LABEL_NEGATIVE
	} else {
		label = LABEL_NEUTRAL
	}

	return score, label
}

// VaderClassifier scores comments locally and never fails.
type VaderClassifier struct{}

func (VaderClassifier) Classify(_ context.Context, text string) (string, error) {
	_, label := AnalyzeWithVADER(text)
	return label, nil
}
