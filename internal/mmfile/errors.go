package mmfile

import "errors"

// ErrNotRegular is returned for paths that are not regular files (pipes,
// devices, directories). Callers read those as streams instead.
var ErrNotRegular = errors.New("mmfile: not a regular file")
