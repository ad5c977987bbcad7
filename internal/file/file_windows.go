package file

import (
	"os"

	"github.com/kei2100/filesharedelete"
)

// Opened with FILE_SHARE_DELETE so that an external rotator can rename or
// remove a file while it is held open here.
func openFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return filesharedelete.OpenFile(name, flag, perm)
}
