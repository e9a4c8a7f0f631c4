package image

import (
	"fmt"
	"strings"

	"thumbsmith/internal/domain"
)

// PromptSpec is everything the art direction brief is assembled from.
type PromptSpec struct {
	Topic             string
	Style             string
	Placement         domain.Placement
	Aspect            domain.AspectRatio
	Concept           string
	CreativeDirection string
}

const facialPreservation = `CRITICAL FACIAL PRESERVATION:
- Keep the person's face EXACTLY as in the uploaded photo
- Do NOT alter facial features, skin tone, expression, or proportions
- Do NOT apply beauty filters, smoothing, or reshaping
- The person must remain instantly recognizable`

const horizontalComposition = `Create a professional YouTube video thumbnail (1920x1080, 16:9).
` + facialPreservation + `

COMPOSITION RULES:
- All content must be fully contained within the frame
- Keep 10% padding from all edges
- Nothing important may be cut off at the edges
- Follow the rule of thirds for subject and text placement
- Text must be large, bold, and centered within the safe area`

const verticalComposition = `Create a vertical YouTube Shorts thumbnail (1080x1920, 9:16).
` + facialPreservation + `

COMPOSITION RULES:
- Center all content vertically
- Keep 15% padding at the top AND bottom
- Nothing may extend beyond the frame
- Place text in the middle third of the frame
- Keep the subject fully visible, scaled to fit 9:16
- Extend the background to the full height without stretching`

// CompositionRules returns the aspect-specific framing instructions.
func CompositionRules(aspect domain.AspectRatio) string {
	if aspect == domain.AspectVertical {
		return verticalComposition
	}
	return horizontalComposition
}

const negativePrompts = "face modifications, facial reshaping, beauty filters, skin smoothing, blurry or low-resolution output, misspelled or altered text, watermarks, logos, compression artifacts, distorted anatomy"

// BuildPrompt assembles the art direction brief sent to the image model.
func BuildPrompt(spec PromptSpec) string {
	sb := &strings.Builder{}
	sb.WriteString("--- ART DIRECTION BRIEF ---\n\n")
	sb.WriteString("Objective: Create a viral, professional, click-worthy YouTube thumbnail.\n\n")
	sb.WriteString(facialPreservation)
	sb.WriteString("\n\nCore Request:\n")
	fmt.Fprintf(sb, "- Style Direction: %s\n", strings.TrimSpace(spec.Style))
	fmt.Fprintf(sb, "- Image Integration: Use the uploaded photo as the main subject, placed on the %s of the frame, with ZERO facial modifications.\n", placementLabel(spec.Placement))
	fmt.Fprintf(sb, "- Text Content: Overlay the exact text %q. Do not change, translate, or misspell it.\n", spec.Topic)
	if concept := strings.TrimSpace(spec.Concept); concept != "" {
		fmt.Fprintf(sb, "- Concept: %s\n", concept)
	}
	sb.WriteString("\nTechnical & Design Specs:\n")
	fmt.Fprintf(sb, "- Composition:\n%s\n- Apply the rule of thirds.\n", CompositionRules(spec.Aspect))
	sb.WriteString("- Lighting: Cinematic and dramatic lighting on the scene. Do not modify the face.\n")
	sb.WriteString("- Color Palette: Vibrant, high-contrast colors that stand out in a feed.\n")
	sb.WriteString("- Text Readability: Place a semi-transparent dark gradient behind the text and keep a 10% safety margin.\n")
	sb.WriteString("- Output Quality: 8K, photorealistic, sharp detail.\n")
	fmt.Fprintf(sb, "\nNEGATIVE PROMPTS: %s\n", negativePrompts)
	if direction := strings.TrimSpace(spec.CreativeDirection); direction != "" {
		fmt.Fprintf(sb, "\nCreative Direction:\n%s\n", direction)
	}
	return sb.String()
}

func placementLabel(p domain.Placement) string {
	switch p {
	case domain.PlacementLeft:
		return "left side"
	case domain.PlacementRight:
		return "right side"
	default:
		return "center"
	}
}
