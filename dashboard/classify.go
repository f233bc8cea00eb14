package dashboard

import "strings"

// Verdict is the outcome of classifying one dashboard reply.
type Verdict int

const (
	// VerdictStale means the reply matches neither the success nor the
	// failure vocabulary of the command. It is most likely a leftover answer
	// to an earlier command or a repeated banner, and the request should be
	// retried.
	VerdictStale Verdict = iota
	// VerdictSuccess means the reply names the requested action in an
	// appropriate tense.
	VerdictSuccess
	// VerdictFailure means the reply carries an explicit error marker.
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return "stale"
	}
}

// Command describes one dashboard command and the reply vocabulary that
// identifies its outcome. Matching is case-insensitive substring matching:
// the protocol has no structured status, so this heuristic is the best
// available disambiguation.
type Command struct {
	// Name is the short action name used in logs.
	Name string
	// Success substrings confirm the action in its present or past tense.
	Success []string
	// Failure substrings reject the action. Checked before Success so "Error:
	// could not start program" never reads as a success.
	Failure []string
}

// banner is the greeting the server sends on connect and occasionally
// repeats mid-session. It never answers a command.
const banner = "connected: universal robots dashboard server"

// genericFailures are markers any command treats as an explicit failure.
var genericFailures = []string{
	"error",
	"failed",
	"failure",
	"could not",
	"not in remote control",
}

// The dashboard command vocabulary. Wording varies between firmware
// generations; each list carries every spelling observed so far.
var (
	// CmdLoad loads a program file. The reply echoes "Loading program: <p>"
	// or "Loaded program: <p>" on success.
	CmdLoad = Command{
		Name:    "load",
		Success: []string{"loading program", "loaded program"},
		Failure: []string{"file not found", "no such file"},
	}

	// CmdPlay starts the loaded program.
	CmdPlay = Command{
		Name:    "play",
		Success: []string{"starting program", "starting", "playing"},
		Failure: []string{"no program loaded"},
	}

	// CmdPause pauses the running program.
	CmdPause = Command{
		Name:    "pause",
		Success: []string{"pausing program", "pausing", "paused"},
		Failure: []string{"no program loaded"},
	}

	// CmdStop stops the running program.
	CmdStop = Command{
		Name:    "stop",
		Success: []string{"stopped", "stopping"},
		Failure: []string{"no program loaded"},
	}

	// CmdUnlockProtectiveStop releases a protective stop.
	CmdUnlockProtectiveStop = Command{
		Name:    "unlock protective stop",
		Success: []string{"protective stop releasing", "releasing", "unlocking"},
		Failure: []string{"cannot unlock"},
	}

	// CmdSetSpeed adjusts the speed slider.
	CmdSetSpeed = Command{
		Name:    "set speed",
		Success: []string{"setting speed"},
		Failure: nil,
	}
)

// Classify maps one raw reply line to a verdict for the given command.
func Classify(cmd Command, reply string) Verdict {
	text := strings.ToLower(strings.TrimSpace(reply))

	if text == "" || strings.Contains(text, banner) {
		return VerdictStale
	}

	for _, marker := range cmd.Failure {
		if strings.Contains(text, marker) {
			return VerdictFailure
		}
	}
	for _, marker := range genericFailures {
		if strings.Contains(text, marker) {
			return VerdictFailure
		}
	}

	for _, marker := range cmd.Success {
		if strings.Contains(text, marker) {
			return VerdictSuccess
		}
	}

	return VerdictStale
}
