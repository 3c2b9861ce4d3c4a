package supervisor

import (
	"errors"
	"fmt"
)

// ErrNoModelResponse indicates the model stream closed without a final
// response.
var ErrNoModelResponse = errors.New("model produced no final response")

// UnknownWorkerError indicates the model requested a worker tool that is not
// registered.
type UnknownWorkerError struct {
	Tool string
}

func (e *UnknownWorkerError) Error() string {
	return fmt.Sprintf("unknown worker tool %q", e.Tool)
}
