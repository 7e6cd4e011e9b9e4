package runtime

// Break, Continue and StopRender are control-flow signals threaded back up
// through ordinary Go error returns, following the teacher's
// LoopControlError idiom (control_flow.go) generalized with a third signal:
// StopRender unwinds template-inheritance rendering once a child template's
// block stack is exhausted (spec §4.5 "StopRender").
type flowSignal string

func (f flowSignal) Error() string { return string(f) }

const (
	Break      flowSignal = "break"
	Continue   flowSignal = "continue"
	StopRender flowSignal = "stop render"
)

func IsBreak(err error) bool      { return err == error(Break) }
func IsContinue(err error) bool   { return err == error(Continue) }
func IsStopRender(err error) bool { return err == error(StopRender) }

// IsControlFlow reports whether err is one of the three render-control
// signals rather than an actual template error; callers that catch a loop's
// body error check this before treating err as a real failure.
func IsControlFlow(err error) bool {
	return IsBreak(err) || IsContinue(err) || IsStopRender(err)
}
