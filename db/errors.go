package db

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrBuilderFault    = errors.New("index builder fault")
)

type ConfigurationError struct {
	Field  string
	Reason string
}

type NotFoundError struct {
	Target string
}

type InvalidArgumentError struct {
	Argument string
	Reason   string
}

type BuilderFaultError struct {
	Index   string
	Builder string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no data for %s", e.Target)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func (e *BuilderFaultError) Error() string {
	return fmt.Sprintf("builder %s failed for index %s: %s", e.Builder, e.Index, e.Err)
}

func (e *BuilderFaultError) Is(target error) bool {
	return target == ErrBuilderFault
}

func (e *BuilderFaultError) Unwrap() error {
	return e.Err
}
