package concepts

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

//go:embed prompts/system.md
var systemPrompt string

const maxSummaryArticles = 10

const snippetPreviewChars = 100

// buildUserPrompt summarizes the fetched articles and appends the fixed
// instruction block describing audience, tone and the required JSON shape.
func buildUserPrompt(articles []agent.Article) string {
	if len(articles) > maxSummaryArticles {
		articles = articles[:maxSummaryArticles]
	}

	sb := &strings.Builder{}
	sb.WriteString("Based on the following Telugu news/entertainment headlines, create 5 hilarious meme concepts.\n\nHEADLINES:\n")
	for _, a := range articles {
		fmt.Fprintf(sb, "- %s: %s\n", a.Title, truncateRunes(a.Snippet, snippetPreviewChars))
	}

	sb.WriteString(`
TARGET AUDIENCE:
- Telugu speakers aged 20-40 years
- Digital natives who consume Telugu cinema, OTT content, and social media
- Appreciate clever wordplay, cultural references, and relatable humor

CONTENT GUIDELINES:
- Use ENGLISH text with Telugu cultural context (no Romanized Telugu)
- Humor should be witty, observational, and relatable to 20-40 age group
- Reference modern Telugu cinema, OTT trends, tech, lifestyle
- Avoid outdated or elderly-focused humor
- Make it shareable and social media-friendly
- CRITICAL: Use CORRECT SPELLINGS in all English text (no typos!)
- Keep language clean and appropriate

MEME STYLE:
- Short, punchy text (max 15 words per text overlay)
- Exaggerated, cartoon-style visuals
- Relatable situations (work, relationships, movies, daily life)
- Native Telugu sensibility (not generic Indian content)

OUTPUT FORMAT (JSON):
[
  {
    "title": "Catchy meme title/caption",
    "text_overlay": "Main text to appear on meme (English only, correct spelling, max 15 words)",
    "visual_description": "Detailed cartoon scene description for the image model (2-3 sentences, be specific)",
    "context": "Why this resonates with Telugu 20-40 audience (1 sentence)"
  }
]

Generate exactly 5 meme concepts as a JSON array. Ensure ALL text has correct spelling and grammar.`)

	return sb.String()
}

// truncateRunes caps s at n characters; Telugu snippets are multi-byte, so a
// byte slice would cut mid-rune and feed invalid UTF-8 to the model.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
