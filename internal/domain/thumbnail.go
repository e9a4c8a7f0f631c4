package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"thumbsmith/pkg/zip"
)

// AspectRatio identifies one of the two thumbnail formats.
type AspectRatio string

const (
	AspectHorizontal AspectRatio = "16:9"
	AspectVertical   AspectRatio = "9:16"
)

// AspectRatios lists the formats every variant is rendered in, in archive order.
var AspectRatios = []AspectRatio{AspectHorizontal, AspectVertical}

// Orientation returns the archive/file prefix for the ratio.
func (a AspectRatio) Orientation() string {
	switch a {
	case AspectVertical:
		return "vertical"
	default:
		return "horizontal"
	}
}

// Placement is where the subject sits relative to the overlay text.
type Placement string

const (
	PlacementLeft   Placement = "left"
	PlacementCenter Placement = "center"
	PlacementRight  Placement = "right"
)

// ParsePlacement accepts the three supported placements case-insensitively.
func ParsePlacement(raw string) (Placement, error) {
	switch p := Placement(strings.ToLower(strings.TrimSpace(raw))); p {
	case PlacementLeft, PlacementCenter, PlacementRight:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlacement, raw)
	}
}

const (
	MinVariants     = 1
	MaxVariants     = 4
	DefaultVariants = 1
)

var (
	ErrMissingFields    = fmt.Errorf("%w: missing required fields", ErrInvalidRequest)
	ErrVariantRange     = fmt.Errorf("%w: number of variants must be between %d and %d", ErrInvalidRequest, MinVariants, MaxVariants)
	ErrUnknownPlacement = fmt.Errorf("%w: unsupported placement", ErrInvalidRequest)
)

// Request is a single thumbnail generation order.
type Request struct {
	Image        []byte
	ImageMIME    string
	Topic        string
	Style        string
	Placement    Placement
	Tone         string
	ChannelStyle string
	Variants     int
	PostProcess  bool
	RequestID    string
}

// Normalize trims and NFC-normalizes the free-text fields in place.
func (r *Request) Normalize() {
	r.Topic = cleanText(r.Topic)
	r.Style = cleanText(r.Style)
	r.Tone = cleanText(r.Tone)
	r.ChannelStyle = cleanText(r.ChannelStyle)
	r.Placement = Placement(strings.ToLower(strings.TrimSpace(string(r.Placement))))
}

// Validate checks required fields and the variant bounds.
func (r *Request) Validate() error {
	if len(r.Image) == 0 || r.Topic == "" || r.Style == "" || r.Placement == "" {
		return ErrMissingFields
	}
	if r.Variants < MinVariants || r.Variants > MaxVariants {
		return ErrVariantRange
	}
	if _, err := ParsePlacement(string(r.Placement)); err != nil {
		return err
	}
	return nil
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Image is one synthesized thumbnail.
type Image struct {
	Aspect  AspectRatio `json:"aspect"`
	Variant int         `json:"variant"`
	MIME    string      `json:"mime"`
	Data    []byte      `json:"data"`
}

// Filename is the archive entry name, e.g. "horizontal-1.jpg".
func (i Image) Filename() string {
	return fmt.Sprintf("%s-%d.%s", i.Aspect.Orientation(), i.Variant, ExtensionForMIME(i.MIME))
}

// DataURI encodes the image inline.
func (i Image) DataURI() string {
	mime := i.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return zip.DataURI(mime, i.Data)
}

// ExtensionForMIME maps image MIME types to file extensions; unknown types use jpg.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// Result is the output of one pipeline run.
type Result struct {
	Fingerprint string  `json:"fingerprint"`
	Horizontal  []Image `json:"horizontal"`
	Vertical    []Image `json:"vertical"`
	Archive     []byte  `json:"archive"`
	Cached      bool    `json:"-"`
}

// Images returns the archive order: all horizontal images, then all vertical.
func (r *Result) Images() []Image {
	out := make([]Image, 0, len(r.Horizontal)+len(r.Vertical))
	out = append(out, r.Horizontal...)
	return append(out, r.Vertical...)
}
