//go:build cgo
// +build cgo

// ONNX-based extraction (requires CGO and the onnxruntime shared library).
package extract

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/models"
	"github.com/hyperjump/miwake/pkg/utils"
)

// ImageNet channel statistics used by ViT and DINOv2 preprocessing.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ONNXExtractor runs a vision model exported to ONNX with pooled embedding
// output. The model takes a single "pixel_values" input of shape
// [1, 3, side, side] and produces an "embedding" output of shape [1, dims].
type ONNXExtractor struct {
	method     string
	dimensions int
	imageSize  int
	session    *ort.AdvancedSession
	// Pre-allocated tensors for Run(); input data is rewritten per call.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXExtractor creates an ONNX extractor for the model at modelPath.
// InitializeEnvironment is called if not already done.
func NewONNXExtractor(method, modelPath string, dimensions, imageSize int) (*ONNXExtractor, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputData := make([]float32, 3*imageSize*imageSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(imageSize), int64(imageSize)), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"pixel_values"},
		[]string{"embedding"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", method, err)
	}

	return &ONNXExtractor{
		method:       method,
		dimensions:   dimensions,
		imageSize:    imageSize,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Extract resizes img to the model input side, normalizes with ImageNet
// statistics, and runs the session. The returned vector is L2-normalized.
func (e *ONNXExtractor) Extract(ctx context.Context, img *imaging.RGBImage) (models.FeatureVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resized := img.Resize(e.imageSize)

	e.mu.Lock()
	defer e.mu.Unlock()

	input := e.inputTensor.GetData()
	plane := e.imageSize * e.imageSize
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			input[c*plane+i] = (resized.Pix[c*plane+i] - imagenetMean[c]) / imagenetStd[c]
		}
	}
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrExtraction, e.method, err)
	}
	vec := make(models.FeatureVector, e.dimensions)
	copy(vec, e.outputTensor.GetData())
	utils.NormalizeL2(vec)
	return vec, nil
}

// Method returns the extraction method name.
func (e *ONNXExtractor) Method() string { return e.method }

// Dimensions returns the embedding dimension.
func (e *ONNXExtractor) Dimensions() int { return e.dimensions }

// Close destroys the session and tensors.
func (e *ONNXExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return nil
}
