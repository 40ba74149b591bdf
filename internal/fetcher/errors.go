package fetcher

import "fmt"

// FetchError reports a failure to materialise a repository workspace. The
// underlying error is preserved so callers can still match sentinels such
// as an expired credential.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch repository: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(op string, err error) error {
	return &FetchError{Op: op, Err: err}
}
