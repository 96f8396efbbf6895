//go:build !windows

package output

import "os"

// enableANSI reports ANSI support for a terminal; Unix terminals always accept escapes
func enableANSI(*os.File) bool {
	return true
}
