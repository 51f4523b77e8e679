package fakenet

import (
	"fmt"
	"html"
	"strings"
)

// imageCreative describes an image ad and its responsive variants.
type imageCreative struct {
	Image    string
	Alt      string
	Variants []imageSize
}

type imageSize struct {
	URL    string
	Width  int
	Height int
}

// composeImageHTML renders an image creative as an <img> tag. It returns an
// empty string when no image URL is available.
func composeImageHTML(c imageCreative) string {
	var parts []string

	switch {
	case c.Image != "":
		parts = append(parts, fmt.Sprintf(`src="%s"`, html.EscapeString(c.Image)))
	case len(c.Variants) > 0 && c.Variants[0].URL != "":
		parts = append(parts, fmt.Sprintf(`src="%s"`, html.EscapeString(c.Variants[0].URL)))
	default:
		return ""
	}

	alt := c.Alt
	if alt == "" {
		alt = "Advertisement"
	}
	parts = append(parts, fmt.Sprintf(`alt="%s"`, html.EscapeString(alt)))

	var srcset []string
	for _, v := range c.Variants {
		if v.URL != "" && v.Width > 0 {
			srcset = append(srcset, fmt.Sprintf("%s %dw", html.EscapeString(v.URL), v.Width))
		}
	}
	if len(srcset) > 0 {
		parts = append(parts, fmt.Sprintf(`srcset="%s"`, strings.Join(srcset, ", ")))
	}

	// fit the container, keep the aspect ratio
	parts = append(parts, `style="max-width:100%;max-height:100%;width:auto;height:auto;display:block;cursor:pointer;"`)
	return fmt.Sprintf("<img %s>", strings.Join(parts, " "))
}

func image(c imageCreative) func() (string, error) {
	return func() (string, error) {
		out := composeImageHTML(c)
		if out == "" {
			return "", fmt.Errorf("image creative %q has no url", c.Alt)
		}
		return out, nil
	}
}
