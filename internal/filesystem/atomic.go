package filesystem

import (
	"fmt"
	"io/fs"

	"github.com/sebastiken/tsrc/internal/shared"
)

const (
	temporaryFileSuffixConstant        = ".tmp"
	atomicWriteFailureTemplateConstant = "unable to write %s: %w"
)

// WriteFileAtomically writes content to a temporary sibling file and renames it
// over the destination, so readers never observe a partially written file.
func WriteFileAtomically(fileSystem shared.FileSystem, filePath string, content []byte, permissions fs.FileMode) error {
	temporaryFilePath := filePath + temporaryFileSuffixConstant
	if writeError := fileSystem.WriteFile(temporaryFilePath, content, permissions); writeError != nil {
		return fmt.Errorf(atomicWriteFailureTemplateConstant, filePath, writeError)
	}
	if renameError := fileSystem.Rename(temporaryFilePath, filePath); renameError != nil {
		return fmt.Errorf(atomicWriteFailureTemplateConstant, filePath, renameError)
	}
	return nil
}
