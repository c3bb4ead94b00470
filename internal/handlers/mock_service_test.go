package handlers_test

import (
	"context"
	"io"
	"io/fs"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/models"
)

// MockScreenshotService - мок-реализация services.ScreenshotService.
type MockScreenshotService struct {
	mock.Mock
}

var _ services.ScreenshotService = (*MockScreenshotService)(nil)

func (m *MockScreenshotService) Upload(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error) {
	args := m.Called(ctx, filename, r)
	_, _ = io.Copy(io.Discard, r)
	return screenshotOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScreenshotService) List(ctx context.Context, q services.ListQuery) ([]models.ListedScreenshot, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListedScreenshot), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *MockScreenshotService) Records(ctx context.Context) ([]models.Screenshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Screenshot), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *MockScreenshotService) RecordPage(ctx context.Context, page int) (*services.RecordPage, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RecordPage), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *MockScreenshotService) Get(ctx context.Context, id int64) (*models.Screenshot, error) {
	args := m.Called(ctx, id)
	return screenshotOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScreenshotService) Create(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error) {
	args := m.Called(ctx, filename, r)
	_, _ = io.Copy(io.Discard, r)
	return screenshotOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScreenshotService) Replace(
	ctx context.Context, id int64, filename string, r io.Reader,
) (*models.Screenshot, error) {
	args := m.Called(ctx, id, filename, r)
	_, _ = io.Copy(io.Discard, r)
	return screenshotOrNil(args.Get(0)), args.Error(1)
}

func (m *MockScreenshotService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScreenshotService) OpenFile(filename string) (io.ReadSeekCloser, fs.FileInfo, error) {
	args := m.Called(filename)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	f, ok := args.Get(0).(io.ReadSeekCloser)
	if !ok {
		panic("mock OpenFile reader is not io.ReadSeekCloser")
	}
	info, ok := args.Get(1).(fs.FileInfo)
	if !ok {
		panic("mock OpenFile info is not fs.FileInfo")
	}
	return f, info, args.Error(2)
}

func screenshotOrNil(v any) *models.Screenshot {
	if v == nil {
		return nil
	}
	return v.(*models.Screenshot) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

// staticToken реализует handlers.TokenIssuer.
type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }
