package engine

import (
	"context"
	"sync"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// MockDetector is a test implementation of the Detector interface. It serves
// canned detections keyed by image path.
type MockDetector struct {
	detections map[string]*model.DetectionResult
	failPaths  map[string]error
	err        error
	calls      []string
	mu         sync.Mutex
}

// NewMockDetector creates a mock detector with no canned detections. Paths
// without a registered detection yield an empty result.
func NewMockDetector() *MockDetector {
	return &MockDetector{
		detections: make(map[string]*model.DetectionResult),
		failPaths:  make(map[string]error),
	}
}

// SetDetection registers the detection returned for an image path.
func (m *MockDetector) SetDetection(imagePath string, detection *model.DetectionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections[imagePath] = detection
}

// SetError makes every detection fail with err.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailPath makes detection for a single image path fail with err.
func (m *MockDetector) FailPath(imagePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPaths[imagePath] = err
}

// DetectObjects returns the canned detection for imagePath.
func (m *MockDetector) DetectObjects(_ context.Context, imagePath string) (*model.DetectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, imagePath)

	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.failPaths[imagePath]; ok {
		return nil, err
	}
	if detection, ok := m.detections[imagePath]; ok {
		return detection, nil
	}
	return &model.DetectionResult{Model: "mock", Objects: []model.DetectedObject{}}, nil
}

// CallCount returns the number of detection calls made.
func (m *MockDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the image paths detected so far.
func (m *MockDetector) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}
