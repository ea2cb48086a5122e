package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockMailArchive implements storage.MailArchive
type MockMailArchive struct {
	mock.Mock
}

// Save stores a message and returns the relative path
func (m *MockMailArchive) Save(content io.Reader) (string, error) {
	args := m.Called(content)
	return args.String(0), args.Error(1)
}

// Get retrieves a message by its path
func (m *MockMailArchive) Get(filePath string) (io.ReadCloser, error) {
	args := m.Called(filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete removes a message by its path
func (m *MockMailArchive) Delete(filePath string) error {
	args := m.Called(filePath)
	return args.Error(0)
}
