package resolver

import (
	"errors"
	"fmt"
)

// UnreachableError 表示网络层（连接、超时）未能触达源站。
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("origin unreachable: %s: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// RejectedError 表示源站返回了 {2xx, 304} 之外的状态码，包括未跟随的重定向。
type RejectedError struct {
	URL    string
	Status int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("origin rejected: %s: status=%d", e.URL, e.Status)
}

// IsUnreachable reports whether err stems from a network-level origin failure.
func IsUnreachable(err error) bool {
	var target *UnreachableError
	return errors.As(err, &target)
}

// IsRejected reports whether err stems from an unacceptable origin status.
func IsRejected(err error) bool {
	var target *RejectedError
	return errors.As(err, &target)
}
