package suggestion

// Outcome is the result of a single client operation. Exactly one of Value
// and Err is meaningful: Err is nil on success.
type Outcome[T any] struct {
	Value T
	Err   *Error
}

func success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func failure[T any](err *Error) Outcome[T] {
	return Outcome[T]{Err: err}
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Unwrap converts the outcome into the conventional (value, error) pair.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Err != nil {
		var zero T
		return zero, o.Err
	}

	return o.Value, nil
}
