package usecase

import "github.com/forPelevin/clipper/internal/runctl"

// Run bundles the controls owned by one pipeline run.
type Run struct {
	Token *runctl.Token
	Usage *runctl.Usage
}

func NewRun() Run {
	return Run{Token: runctl.NewToken(), Usage: runctl.NewUsage()}
}

func (r Run) withDefaults() Run {
	if r.Token == nil {
		r.Token = runctl.NewToken()
	}
	if r.Usage == nil {
		r.Usage = runctl.NewUsage()
	}
	return r
}
