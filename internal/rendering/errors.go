package rendering

import "fmt"

// Stage names the rendering step that failed.
type Stage string

const (
	StageInput   Stage = "input"
	StageParse   Stage = "parse"
	StageExecute Stage = "execute"
)

// Error is returned for every rendering failure.
type Error struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("render %s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
