// Package testutil provides mock implementations of the capability interfaces
// defined in pkg/preview, plus small fixture helpers for tests.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// MockTableFormatter provides a mock implementation of preview.TableFormatter.
// Configure expectations using testify/mock methods (e.g., .On("Headers", ...).Return(...)).
// Calls may arrive concurrently in parallel mode; testify/mock is safe for that.
type MockTableFormatter struct {
	mock.Mock
}

// Headers mocks the Headers method.
func (m *MockTableFormatter) Headers(ctx context.Context, req preview.TableRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Preview mocks the Preview method.
func (m *MockTableFormatter) Preview(ctx context.Context, req preview.TableRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockDocumentConverter provides a mock implementation of preview.DocumentConverter.
type MockDocumentConverter struct {
	mock.Mock
}

// Convert mocks the Convert method.
func (m *MockDocumentConverter) Convert(ctx context.Context, req preview.ConvertRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockChooser provides a mock implementation of preview.Chooser.
type MockChooser struct {
	mock.Mock
}

// Choose mocks the Choose method.
func (m *MockChooser) Choose(ctx context.Context, candidates []string) (selected []string, err error) {
	args := m.Called(ctx, candidates)
	selected, _ = args.Get(0).([]string)
	err = args.Error(1)
	return
}

// MockCompressor provides a mock implementation of preview.Compressor.
type MockCompressor struct {
	mock.Mock
}

// Compress mocks the Compress method.
func (m *MockCompressor) Compress(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// MockHooks provides a mock implementation of the preview.Hooks interface.
// IMPORTANT: If test logic adds state to this mock (e.g., recording calls), the test itself MUST ensure thread-safety
// for concurrent hook invocations.
type MockHooks struct {
	mock.Mock
}

// OnRunStart mocks the OnRunStart method.
func (m *MockHooks) OnRunStart(total int) error {
	args := m.Called(total)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status preview.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report preview.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
