package cli

// AlertExitError carries the process exit code for a run that raised
// financial alerts under --fail-on-alert.
type AlertExitError struct {
	ExitCode int
	Reason   string
}

func (e *AlertExitError) Error() string {
	return e.Reason
}

// ExitCodeAlert is the exit code used when --fail-on-alert trips.
const ExitCodeAlert = 2
