package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sebastiken/tsrc/internal/filesystem"
	"github.com/sebastiken/tsrc/internal/shared"
)

// StateDirectoryName is the hidden directory holding workspace bookkeeping.
const StateDirectoryName = ".tsrc"

// RecordFileName is the workspace record file inside the state directory.
const RecordFileName = "workspace.yml"

const (
	recordFilePermissionsConstant          = 0o644
	stateDirectoryPermissionsConstant      = 0o755
	recordNotFoundMessageConstant          = "workspace record not found"
	corruptRecordTemplateConstant          = "workspace record %s is unreadable: %v"
	recordEncodeTemplateConstant           = "unable to encode workspace record: %w"
	fileSystemNotConfiguredMessageConstant = "file system not configured"
	workspaceRootRequiredMessageConstant   = "workspace root is required"
)

var (
	// ErrRecordNotFound indicates the workspace has not been initialized.
	ErrRecordNotFound = errors.New(recordNotFoundMessageConstant)
	// ErrFileSystemNotConfigured indicates a missing file system collaborator.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	// ErrWorkspaceRootRequired indicates an empty workspace root path.
	ErrWorkspaceRootRequired = errors.New(workspaceRootRequiredMessageConstant)
)

// CorruptRecordError indicates the workspace record exists but cannot be decoded.
type CorruptRecordError struct {
	Path  string
	Cause error
}

// Error describes the unreadable record.
func (recordError CorruptRecordError) Error() string {
	return fmt.Sprintf(corruptRecordTemplateConstant, recordError.Path, recordError.Cause)
}

// Unwrap exposes the decoding failure.
func (recordError CorruptRecordError) Unwrap() error {
	return recordError.Cause
}

// RecordStore reads and writes the workspace record beneath the state directory.
type RecordStore struct {
	fileSystem    shared.FileSystem
	workspaceRoot string
}

// NewRecordStore validates collaborators and builds a RecordStore rooted at
// workspaceRoot.
func NewRecordStore(fileSystem shared.FileSystem, workspaceRoot string) (*RecordStore, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	trimmedWorkspaceRoot := strings.TrimSpace(workspaceRoot)
	if len(trimmedWorkspaceRoot) == 0 {
		return nil, ErrWorkspaceRootRequired
	}
	return &RecordStore{fileSystem: fileSystem, workspaceRoot: trimmedWorkspaceRoot}, nil
}

// StateDirectoryPath returns the bookkeeping directory of the workspace.
func (store *RecordStore) StateDirectoryPath() string {
	return filepath.Join(store.workspaceRoot, StateDirectoryName)
}

// RecordFilePath returns the location of the persisted workspace record.
func (store *RecordStore) RecordFilePath() string {
	return filepath.Join(store.StateDirectoryPath(), RecordFileName)
}

// Exists reports whether a workspace record is already present.
func (store *RecordStore) Exists() (bool, error) {
	_, statError := store.fileSystem.Stat(store.RecordFilePath())
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, statError
	}
	return true, nil
}

// Load reads the workspace record. A missing record yields ErrRecordNotFound
// and an undecodable one yields CorruptRecordError.
func (store *RecordStore) Load() (WorkspaceRecord, error) {
	recordContent, readError := store.fileSystem.ReadFile(store.RecordFilePath())
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return WorkspaceRecord{}, ErrRecordNotFound
		}
		return WorkspaceRecord{}, readError
	}

	var record WorkspaceRecord
	if unmarshalError := yaml.Unmarshal(recordContent, &record); unmarshalError != nil {
		return WorkspaceRecord{}, CorruptRecordError{Path: store.RecordFilePath(), Cause: unmarshalError}
	}
	return record, nil
}

// Save writes the record atomically beneath the state directory, creating the
// directory when absent.
func (store *RecordStore) Save(record WorkspaceRecord) error {
	if directoryError := store.fileSystem.MkdirAll(store.StateDirectoryPath(), stateDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}
	recordContent, marshalError := yaml.Marshal(record)
	if marshalError != nil {
		return fmt.Errorf(recordEncodeTemplateConstant, marshalError)
	}
	return filesystem.WriteFileAtomically(store.fileSystem, store.RecordFilePath(), recordContent, recordFilePermissionsConstant)
}
