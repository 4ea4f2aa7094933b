// +build !windows

package winutil

func tokenIsElevated() bool {
	return false
}
