// Package perception recovers view and text signal from per-step
// screenshots. Both adapters are deliberately lossy: their mistakes
// are part of what the experiments measure.
package perception

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.PerceptionPort = (*BannerClassifier)(nil)

// bannerColor is the reference header color rendered for a view.
type bannerColor struct {
	view    entity.View
	r, g, b float64
}

// The storefront renders a solid banner per view. These match its
// stylesheet.
var defaultPalette = []bannerColor{
	{entity.ViewHome, 0x23, 0x2f, 0x3e},
	{entity.ViewSearchResults, 0x1a, 0x73, 0xe8},
	{entity.ViewEmptyResults, 0x9a, 0xa0, 0xa6},
	{entity.ViewProductDetail, 0x18, 0x80, 0x38},
	{entity.ViewCart, 0xe8, 0x71, 0x0a},
}

// BannerClassifier infers the view from the average color of the top
// banner strip of a screenshot.
type BannerClassifier struct {
	palette     []bannerColor
	stripHeight int
}

func NewBannerClassifier() *BannerClassifier {
	return &BannerClassifier{palette: defaultPalette, stripHeight: 48}
}

func (c *BannerClassifier) ClassifyView(screenshotPath string) (output.ViewEstimate, error) {
	img, err := imaging.Open(screenshotPath)
	if err != nil {
		return output.ViewEstimate{ViewID: entity.ViewUnknown}, fmt.Errorf("open screenshot: %w", err)
	}

	bounds := img.Bounds()
	h := c.stripHeight
	if bounds.Dy() < h {
		h = bounds.Dy()
	}
	strip := imaging.Crop(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+h))
	r, g, b := averageColor(strip)

	best := output.ViewEstimate{ViewID: entity.ViewUnknown}
	bestDist := math.MaxFloat64
	for _, ref := range c.palette {
		d := colorDistance(r, g, b, ref.r, ref.g, ref.b)
		if d < bestDist {
			bestDist = d
			best.ViewID = ref.view
		}
	}

	// Distance 0 is a perfect banner match; beyond ~120 the strip is
	// likely not a banner at all.
	best.Confidence = 1 - math.Min(bestDist/120, 1)
	if best.Confidence == 0 {
		best.ViewID = entity.ViewUnknown
	}
	return best, nil
}

func averageColor(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	var sumR, sumG, sumB, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			sumR += float64(pr >> 8)
			sumG += float64(pg >> 8)
			sumB += float64(pb >> 8)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return sumR / n, sumG / n, sumB / n
}

func colorDistance(r1, g1, b1, r2, g2, b2 float64) float64 {
	dr, dg, db := r1-r2, g1-g2, b1-b2
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
