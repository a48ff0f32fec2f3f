package image

import (
	"fmt"
	"strings"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

// buildImagePrompt embeds the concept's scene and overlay text into the fixed
// style directive sent to the image model.
func buildImagePrompt(c agent.Concept) string {
	scene := c.VisualDescription
	if scene == "" {
		scene = c.Title
	}

	sb := &strings.Builder{}
	sb.WriteString("Create a cartoon-style meme image:\n\n")
	fmt.Fprintf(sb, "SCENE: %s\n\n", scene)
	fmt.Fprintf(sb, "TEXT OVERLAY: %q\n\n", c.TextOverlay)
	sb.WriteString(`STYLE:
- Cartoon/comic art style
- Bold, expressive characters
- Telugu cinema/culture aesthetic
- Bright colors
- Suitable for social media meme format
- Text should be clearly readable

Make it funny and exaggerated!`)
	return sb.String()
}
