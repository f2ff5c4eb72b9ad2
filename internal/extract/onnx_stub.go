//go:build !cgo
// +build !cgo

package extract

import "errors"

// NewONNXExtractor is unavailable without CGO.
func NewONNXExtractor(method, modelPath string, dimensions, imageSize int) (Extractor, error) {
	return nil, errors.New("ONNX extractor requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}
