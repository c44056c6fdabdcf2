package xerror

import "github.com/hashicorp/go-multierror"

func Unwrap[T any](t T, e error) T {
	if e != nil {
		panic(e)
	}
	return t
}

// CloseAll calls every closer in order, collecting every returned error
// instead of stopping at the first one. It is meant for shutdown paths
// that release several independent collaborators (a shared-memory
// mapping, a backing file) where a failure in one must not prevent the
// others from being attempted.
func CloseAll(closers ...func() error) error {
	var result error
	for _, closer := range closers {
		if closer == nil {
			continue
		}
		if err := closer(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
