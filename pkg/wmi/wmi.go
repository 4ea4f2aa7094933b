// +build windows

package wmiutil

import (
	"context"
	"time"

	"github.com/StackExchange/wmi"
)

// QueryWithContext runs a WMI query with a deadline. The underlying COM
// call cannot be interrupted, so on timeout the goroutine is abandoned
// and its result discarded.
func QueryWithContext(timeout time.Duration, query string, dst interface{}, connectServerArgs ...interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- wmi.Query(query, dst, connectServerArgs...)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}
