package detector

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// FeatureSet holds the four scalar features derived from one PixelBuffer.
type FeatureSet struct {
	EdgeEnergy    float64 `json:"edge_energy"`
	ChannelStdDev float64 `json:"channel_std_dev"`
	Saturation    float64 `json:"saturation"`
	SizeProxyKB   float64 `json:"size_proxy_kb"`
}

// featureExtractor computes the FeatureSet. Channel and saturation statistics
// run over parallel horizontal strips; strip results are reduced in index
// order so the output is bit-identical across runs.
type featureExtractor struct {
	workers int
}

func newFeatureExtractor(workers int) *featureExtractor {
	return &featureExtractor{workers: workers}
}

// stripStats accumulates per-strip channel sums for the statistics pass.
type stripStats struct {
	sumR, sumG, sumB    float64
	sumR2, sumG2, sumB2 float64
	sumSat              float64
	pixels              int
}

// Extract computes all four features for a validated buffer.
func (fe *featureExtractor) Extract(pb *PixelBuffer, fileByteLength int64) (FeatureSet, error) {
	if pb == nil || pb.Width <= 0 || pb.Height <= 0 {
		return FeatureSet{}, ErrInvalidInput
	}
	if fileByteLength < 0 {
		return FeatureSet{}, ErrInvalidInput
	}

	fs := FeatureSet{
		EdgeEnergy:  fe.edgeEnergy(pb),
		SizeProxyKB: float64(fileByteLength) / 1024.0,
	}
	fs.ChannelStdDev, fs.Saturation = fe.channelStats(pb)
	return fs, nil
}

// edgeEnergy is the mean absolute discrete Laplacian over interior pixels.
// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]. The minEdge floor
// guarantees at least one interior pixel.
func (fe *featureExtractor) edgeEnergy(pb *PixelBuffer) float64 {
	w, h := pb.Width, pb.Height
	gray := pb.Grayscale()

	var total float64
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			center := gray[row+x]
			top := gray[row-w+x]
			bottom := gray[row+w+x]
			left := gray[row+x-1]
			right := gray[row+x+1]

			// Neighbors are summed pairwise so a uniform neighborhood
			// cancels to exactly zero; doubling is exact in float64,
			// left-to-right accumulation is not.
			total += math.Abs((top + bottom) + (left + right) - 4*center)
		}
	}

	interior := float64((w - 2) * (h - 2))
	return total / interior
}

// channelStats computes the average per-channel population standard deviation
// and the mean saturation in a single pass over the buffer.
func (fe *featureExtractor) channelStats(pb *PixelBuffer) (stdDev, saturation float64) {
	w, h := pb.Width, pb.Height

	workers := fe.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > h {
		workers = h
	}
	rowsPerWorker := (h + workers - 1) / workers

	strips := make([]stripStats, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > h {
			endY = h
		}
		wg.Add(1)
		go func(idx, startY, endY int) {
			defer wg.Done()

			var s stripStats
			for y := startY; y < endY; y++ {
				row := y * w * 4
				for x := 0; x < w; x++ {
					base := row + x*4
					r := float64(pb.Pix[base])
					g := float64(pb.Pix[base+1])
					b := float64(pb.Pix[base+2])

					s.sumR += r
					s.sumG += g
					s.sumB += b
					s.sumR2 += r * r
					s.sumG2 += g * g
					s.sumB2 += b * b
					s.sumSat += pixelSaturation(r, g, b)
					s.pixels++
				}
			}
			strips[idx] = s
		}(i, startY, endY)
	}
	wg.Wait()

	// Fixed-order reduction keeps floating point results deterministic.
	var agg stripStats
	for i := range strips {
		agg.sumR += strips[i].sumR
		agg.sumG += strips[i].sumG
		agg.sumB += strips[i].sumB
		agg.sumR2 += strips[i].sumR2
		agg.sumG2 += strips[i].sumG2
		agg.sumB2 += strips[i].sumB2
		agg.sumSat += strips[i].sumSat
		agg.pixels += strips[i].pixels
	}

	n := float64(agg.pixels)
	stdDevs := []float64{
		populationStdDev(agg.sumR, agg.sumR2, n),
		populationStdDev(agg.sumG, agg.sumG2, n),
		populationStdDev(agg.sumB, agg.sumB2, n),
	}
	return stat.Mean(stdDevs, nil), agg.sumSat / n
}

// populationStdDev derives the population standard deviation from running
// sums. Variance is floor-clamped to 0 before the square root so rounding
// never produces a negative-epsilon failure.
func populationStdDev(sum, sumSq, n float64) float64 {
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// pixelSaturation is (max-min)/max on [0,1]-normalized channels, defined as
// 0 for pure black.
func pixelSaturation(r, g, b float64) float64 {
	r, g, b = r/255.0, g/255.0, b/255.0

	max := math.Max(r, math.Max(g, b))
	if max == 0 {
		return 0
	}
	min := math.Min(r, math.Min(g, b))
	return (max - min) / max
}
