// File: internal/mocks/mocks.go
// Package mocks holds testify mocks for the interfaces the engine consumes.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Timeouts() config.TimeoutsConfig {
	args := m.Called()
	return args.Get(0).(config.TimeoutsConfig)
}

func (m *MockConfig) Store() config.StoreConfig {
	args := m.Called()
	return args.Get(0).(config.StoreConfig)
}

func (m *MockConfig) ActiveProfile() config.TimeoutProfile {
	args := m.Called()
	return args.Get(0).(config.TimeoutProfile)
}

func (m *MockConfig) SetBrowserHeadless(b bool) { m.Called(b) }
func (m *MockConfig) SetConstrained(b bool)     { m.Called(b) }
func (m *MockConfig) SetStoreURL(url string)    { m.Called(url) }

// -- Element Mock --

// MockElement mocks driver.Element. Use it where the order of driver calls
// matters; internal/driver/fake is simpler for everything else.
type MockElement struct {
	mock.Mock
}

var _ driver.Element = (*MockElement)(nil)

func (m *MockElement) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) ScrollIntoView(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) ScriptClick(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// -- Browser Mock --

// MockBrowser mocks a driver that can also navigate and close, the shape
// the service layer launches.
type MockBrowser struct {
	mock.Mock
}

var _ driver.Driver = (*MockBrowser)(nil)

func (m *MockBrowser) FindElements(ctx context.Context, by driver.By, value string) ([]driver.Element, error) {
	args := m.Called(ctx, by, value)
	els, _ := args.Get(0).([]driver.Element)
	return els, args.Error(1)
}

func (m *MockBrowser) ExecuteScript(ctx context.Context, script string, out any) error {
	return m.Called(ctx, script, out).Error(0)
}

func (m *MockBrowser) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	handles, _ := args.Get(0).([]string)
	return handles, args.Error(1)
}

func (m *MockBrowser) CurrentWindowHandle(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowser) SwitchToWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockBrowser) CloseWindow(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBrowser) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowser) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowser) PageSource(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowser) ReadyState(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowser) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockBrowser) Close() error {
	return m.Called().Error(0)
}
