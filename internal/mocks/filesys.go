// Package mocks holds testify mocks shared by package tests.
package mocks

import (
	"io/fs"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/lc/cepr/internal/filesys"
)

var _ filesys.FS = (*MockFS)(nil)

// MockFS is a testify mock of filesys.FS.
type MockFS struct {
	mock.Mock
}

// Stat mocks the Stat method.
func (m *MockFS) Stat(p string) (fs.FileInfo, error) {
	args := m.Called(p)
	var info fs.FileInfo
	if args.Get(0) != nil {
		info = args.Get(0).(fs.FileInfo)
	}
	return info, args.Error(1)
}

// ReadFile mocks the ReadFile method.
func (m *MockFS) ReadFile(p string) ([]byte, error) {
	args := m.Called(p)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

// Open mocks the Open method.
func (m *MockFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	var f *os.File
	if args.Get(0) != nil {
		f = args.Get(0).(*os.File)
	}
	return f, args.Error(1)
}

// MkdirAll mocks the MkdirAll method.
func (m *MockFS) MkdirAll(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}

// CreateTemp mocks the CreateTemp method.
func (m *MockFS) CreateTemp(dir, pattern string) (*os.File, error) {
	args := m.Called(dir, pattern)
	var f *os.File
	if args.Get(0) != nil {
		f = args.Get(0).(*os.File)
	}
	return f, args.Error(1)
}

// Rename mocks the Rename method.
func (m *MockFS) Rename(oldPath, newPath string) error {
	return m.Called(oldPath, newPath).Error(0)
}

// Remove mocks the Remove method.
func (m *MockFS) Remove(p string) error {
	return m.Called(p).Error(0)
}

// Chmod mocks the Chmod method.
func (m *MockFS) Chmod(p string, mode os.FileMode) error {
	return m.Called(p, mode).Error(0)
}
