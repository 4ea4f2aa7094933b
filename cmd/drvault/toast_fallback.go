// +build !windows

package main

func notifyError(title, message string) {
	// desktop notifications are implemented only for Windows
}

func notifySuccess(title, message string) {
}
