//go:build !unix

package bridge

import "os"

func signalName(_ *os.ProcessState) string {
	return ""
}
