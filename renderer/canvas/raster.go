package canvasrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/invoicestudio/renderer"
)

// ErrUnsupportedSurface 表示 Surface 不是由本渲染器生成的。
var ErrUnsupportedSurface = errors.New("unsupported surface")

// RenderToBitmap 以 PixelRatio 个设备像素/布局单位栅格化整张画布，裁剪到 region，
// 铺在页面底色上并编码为 PNG。
func (r *Renderer) RenderToBitmap(s renderer.Surface, region renderer.Region) ([]byte, error) {
	surf, ok := s.(*Surface)
	if !ok || surf == nil || surf.c == nil {
		return nil, ErrUnsupportedSurface
	}
	if region.PixelRatio <= 0 || math.IsNaN(region.PixelRatio) {
		return nil, fmt.Errorf("像素比无效: %g", region.PixelRatio)
	}
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("栅格区域为空: %gx%g", region.Width, region.Height)
	}

	full := rasterizer.Draw(surf.c, canvas.DPMM(region.PixelRatio), canvas.DefaultColorSpace)
	bounds := full.Bounds()
	crop := image.Rect(
		int(math.Floor(region.X*region.PixelRatio)),
		int(math.Floor(region.Y*region.PixelRatio)),
		int(math.Ceil((region.X+region.Width)*region.PixelRatio)),
		int(math.Ceil((region.Y+region.Height)*region.PixelRatio)),
	).Intersect(bounds)
	if crop.Empty() {
		return nil, fmt.Errorf("栅格区域超出画布: %+v", region)
	}

	clipped := imaging.Crop(full, crop)
	flat := imaging.New(clipped.Bounds().Dx(), clipped.Bounds().Dy(), surf.background)
	flat = imaging.Overlay(flat, clipped, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
