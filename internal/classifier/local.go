package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	ort "github.com/yalue/onnxruntime_go"
)

const defaultInputSize = 224

// localONNX runs a bundled image-classification model on the host.
// The bundle directory holds forgery_v1.onnx plus label_map.json; the
// output labels go through the same normalization contract as remote
// vendor labels.
type localONNX struct {
	name      string
	session   *ort.AdvancedSession
	labels    []string
	inputSize int

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	// The session reuses one pair of tensors, so runs are serialized.
	mu sync.Mutex
}

// NewLocalONNX initializes the ONNX session from a model bundle. A
// missing bundle or runtime library is reported as ErrUnavailable so
// the deployment can fall back to remote classifiers only.
func NewLocalONNX(name, bundleDir string) (Classifier, error) {
	if bundleDir == "" {
		return nil, fmt.Errorf("bundle dir is empty: %w", ErrUnavailable)
	}

	modelPath := filepath.Join(bundleDir, "forgery_v1.onnx")
	labelsPath := filepath.Join(bundleDir, "label_map.json")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, ErrUnavailable)
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH: %w", ErrUnavailable)
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	size := defaultInputSize
	if env := strings.TrimSpace(os.Getenv("FORGESIGHT_ONNX_INPUT_SIZE")); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed > 0 {
			size = parsed
		}
	}

	inputShape := ort.NewShape(1, 3, int64(size), int64(size))
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(len(labels)))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"logits"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &localONNX{
		name:      name,
		session:   session,
		labels:    labels,
		inputSize: size,
		input:     input,
		output:    output,
	}, nil
}

func (m *localONNX) Name() string { return m.name }

func (m *localONNX) Classify(ctx context.Context, in Input) (*Prediction, error) {
	if m == nil || m.session == nil {
		return nil, errors.New("local model not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(in.Bytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fillTensor(m.input.GetData(), img, m.inputSize)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	raw := m.output.GetData()
	probs := softmax(raw)

	bestIdx := 0
	for i := range probs {
		if probs[i] > probs[bestIdx] {
			bestIdx = i
		}
	}
	if bestIdx >= len(m.labels) {
		return nil, fmt.Errorf("model emitted %d outputs for %d labels", len(raw), len(m.labels))
	}

	return &Prediction{
		Label:      m.labels[bestIdx],
		Confidence: probs[bestIdx],
	}, nil
}

// fillTensor writes the image into a CHW float tensor, nearest-neighbor
// scaled to size x size and normalized to [0,1].
func fillTensor(dst []float32, img image.Image, size int) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	plane := size * size

	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*h/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*w/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := y*size + x
			dst[idx] = float32(r>>8) / 255.0
			dst[plane+idx] = float32(g>>8) / 255.0
			dst[2*plane+idx] = float32(b>>8) / 255.0
		}
	}
}

func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("label map is empty")
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath locates the platform onnxruntime library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common names and
// locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
