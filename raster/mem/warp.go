package mem

import (
	"fmt"
	"math"

	"github.com/eoproc/surfobs/raster"
)

// Warp resamples src onto the grid described by opts. Supported
// resampling algorithms are near, bilinear and average.
func (e *Engine) Warp(src raster.Dataset, opts *raster.WarpOptions) (raster.Dataset, error) {
	srcDS, ok := src.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("mem engine can only warp mem datasets")
	}
	if len(opts.OutputBounds) != 4 || opts.XRes <= 0 || opts.YRes <= 0 || len(opts.DstSRS) == 0 {
		return nil, fmt.Errorf("warp requires output bounds, resolutions and a destination SRS")
	}

	boundsSRS := opts.BoundsSRS
	if len(boundsSRS) == 0 {
		boundsSRS = opts.DstSRS
	}
	bounds, err := e.TransformCoordinates(boundsSRS, opts.DstSRS, opts.OutputBounds)
	if err != nil {
		return nil, err
	}
	xMin := math.Min(bounds[0], bounds[2])
	xMax := math.Max(bounds[0], bounds[2])
	yMin := math.Min(bounds[1], bounds[3])
	yMax := math.Max(bounds[1], bounds[3])

	toSrc, err := e.pointTransform(opts.DstSRS, srcDS.Proj)
	if err != nil {
		return nil, err
	}

	alg := opts.ResampleAlg
	if len(alg) == 0 {
		alg = "near"
	}

	xSize := int(math.Round((xMax - xMin) / opts.XRes))
	ySize := int(math.Round((yMax - yMin) / opts.YRes))
	if xSize <= 0 || ySize <= 0 {
		return nil, fmt.Errorf("warp bounds collapse to an empty grid")
	}

	out := &Dataset{
		Proj:  opts.DstSRS,
		GT:    raster.GeoTransform{xMin, opts.XRes, 0, yMax, 0, -opts.YRes},
		XSize: xSize,
		YSize: ySize,
		Bands: make([][]float64, srcDS.RasterCount()),
	}

	for b := range out.Bands {
		out.Bands[b] = make([]float64, xSize*ySize)
		for row := 0; row < ySize; row++ {
			for col := 0; col < xSize; col++ {
				x := xMin + (float64(col)+0.5)*opts.XRes
				y := yMax - (float64(row)+0.5)*opts.YRes
				sx, sy := toSrc(x, y)
				var v float64
				switch alg {
				case "bilinear":
					v = srcDS.sampleBilinear(b, sx, sy)
				case "average":
					hx, hy := halfCellInSource(toSrc, x, y, opts.XRes, opts.YRes)
					v = srcDS.sampleAverage(b, sx, sy, hx, hy)
				default:
					v = srcDS.sampleNearest(b, sx, sy)
				}
				out.Bands[b][row*xSize+col] = v
			}
		}
	}
	return out, nil
}

func halfCellInSource(toSrc PointTransform, x, y, xRes, yRes float64) (float64, float64) {
	x0, y0 := toSrc(x-xRes/2, y-yRes/2)
	x1, y1 := toSrc(x+xRes/2, y+yRes/2)
	return math.Abs(x1-x0) / 2, math.Abs(y1-y0) / 2
}

func (d *Dataset) pixelCoords(x, y float64) (float64, float64) {
	px := (x - d.GT[0]) / d.GT[1]
	py := (y - d.GT[3]) / d.GT[5]
	return px, py
}

func (d *Dataset) at(band int, col, row int) (float64, bool) {
	if col < 0 || col >= d.XSize || row < 0 || row >= d.YSize {
		return 0, false
	}
	return d.Bands[band][row*d.XSize+col], true
}

func (d *Dataset) sampleNearest(band int, x, y float64) float64 {
	px, py := d.pixelCoords(x, y)
	v, _ := d.at(band, int(math.Floor(px)), int(math.Floor(py)))
	return v
}

func (d *Dataset) sampleBilinear(band int, x, y float64) float64 {
	px, py := d.pixelCoords(x, y)
	fx, fy := px-0.5, py-0.5
	col0, row0 := int(math.Floor(fx)), int(math.Floor(fy))
	wx, wy := fx-float64(col0), fy-float64(row0)

	var sum, weight float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			v, ok := d.at(band, col0+dc, row0+dr)
			if !ok {
				continue
			}
			w := (1 - math.Abs(float64(dc)-wx)) * (1 - math.Abs(float64(dr)-wy))
			sum += v * w
			weight += w
		}
	}
	if weight == 0 {
		return d.sampleNearest(band, x, y)
	}
	return sum / weight
}

func (d *Dataset) sampleAverage(band int, x, y, halfX, halfY float64) float64 {
	pxMin, pyMin := d.pixelCoords(x-halfX, y+halfY)
	pxMax, pyMax := d.pixelCoords(x+halfX, y-halfY)
	colMin, colMax := int(math.Floor(pxMin)), int(math.Ceil(pxMax))-1
	rowMin, rowMax := int(math.Floor(pyMin)), int(math.Ceil(pyMax))-1

	var sum float64
	var count int
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			if v, ok := d.at(band, col, row); ok {
				sum += v
				count++
			}
		}
	}
	if count == 0 {
		return d.sampleNearest(band, x, y)
	}
	return sum / float64(count)
}
