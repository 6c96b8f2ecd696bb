package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch           = errors.New("feed fetch failed")
	ErrParse           = errors.New("feed parse failed")
	ErrDispatch        = errors.New("dispatch failed")
	ErrConfiguration   = errors.New("invalid configuration")
	ErrSecretRetrieval = errors.New("secret retrieval failed")
)

// FetchError describes a network or HTTP failure fetching a source's feed.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d: %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// ParseError describes a malformed feed document. It is recovered like a FetchError.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s feed: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, ErrFetch, e.Err} }

// DispatchError describes a failed publish on one channel for one entry.
type DispatchError struct {
	Channel    Channel
	StatusCode int
	Body       string
	Err        error
}

func (e *DispatchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s publish: status %d body: %s", e.Channel, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s publish: status %d", e.Channel, e.StatusCode)
	default:
		return fmt.Sprintf("%s publish: %v", e.Channel, e.Err)
	}
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDispatch}
	}
	return []error{ErrDispatch, e.Err}
}
