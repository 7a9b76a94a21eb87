package core

import "sync"

const avgWindow uint8 = 30

// MetricsState tracks present pacing: a rolling frame-time average and a
// frames-per-second counter updated once per wall-clock second.
type MetricsState struct {
	frameAvgCounter    uint8
	msTimes            [avgWindow]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

// MetricsUpdate records one frame; elapsed is in seconds.
func MetricsUpdate(elapsed float64) {
	frameMS := elapsed * 1000.0
	metricsState.msTimes[metricsState.frameAvgCounter] = frameMS
	if metricsState.frameAvgCounter == avgWindow-1 {
		sum := 0.0
		for i := uint8(0); i < avgWindow; i++ {
			sum += metricsState.msTimes[i]
		}
		metricsState.msAvg = sum / float64(avgWindow)
	}
	metricsState.frameAvgCounter++
	metricsState.frameAvgCounter %= avgWindow

	metricsState.accumulatedFrameMS += frameMS
	if metricsState.accumulatedFrameMS > 1000 {
		metricsState.fps = float64(metricsState.frames)
		metricsState.accumulatedFrameMS -= 1000
		metricsState.frames = 0
	}
	metricsState.frames++
}

func MetricsFPS() float64 {
	return metricsState.fps
}

func MetricsFrameTime() float64 {
	return metricsState.msAvg
}

func MetricsFrame() (float64, float64) {
	return metricsState.fps, metricsState.msAvg
}
