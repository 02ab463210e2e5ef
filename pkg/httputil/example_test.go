package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/astview/pkg/httputil"
)

var policy = httputil.Backoff{Attempts: 3, Delay: time.Millisecond}

func ExampleRetry() {
	attempts := 0
	err := httputil.Retry(context.Background(), policy, func() error {
		attempts++
		if attempts < 3 {
			return &httputil.RetryableError{Err: errors.New("connection reset")}
		}
		return nil
	})
	fmt.Println("attempts:", attempts)
	fmt.Println("error:", err)
	// Output:
	// attempts: 3
	// error: <nil>
}

func ExampleRetry_permanent() {
	attempts := 0
	err := httputil.Retry(context.Background(), policy, func() error {
		attempts++
		return &httputil.StatusError{StatusCode: 404}
	})
	fmt.Println("attempts:", attempts)
	fmt.Println("error:", err)
	// Output:
	// attempts: 1
	// error: HTTP error! status: 404
}
