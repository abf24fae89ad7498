//go:build !unix

package nettools

func pollReadable(fd int) bool {
	return false
}
