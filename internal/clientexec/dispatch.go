package clientexec

import (
	"context"

	"sira/internal/action"
)

// Dispatcher implements action.Visitor, running whichever variant is set
// and collecting its reply.
type Dispatcher struct {
	ctx            context.Context
	stdout, stderr []byte
	err            error
}

// Dispatch runs a against ctx and returns its reply: stdout/stderr captured
// from the action (empty for line_in_file/upload, which have none) and the
// exit code sira-client should report, per the taxonomy in clientexec.go.
func Dispatch(ctx context.Context, a *action.Action) (stdout, stderr []byte, exitCode int) {
	d := &Dispatcher{ctx: ctx}
	if err := a.Accept(d); err != nil {
		d.err = err
	}
	return d.stdout, d.stderr, CodeOf(d.err)
}

func (d *Dispatcher) VisitCommand(c *action.CommandAction) error {
	d.stdout, d.stderr, d.err = RunCommand(d.ctx, c)
	return d.err
}

func (d *Dispatcher) VisitScript(s *action.ScriptAction) error {
	d.stdout, d.stderr, d.err = RunScript(d.ctx, s)
	return d.err
}

func (d *Dispatcher) VisitLineInFile(l *action.LineInFileAction) error {
	d.err = RunLineInFile(l)
	return d.err
}

func (d *Dispatcher) VisitUpload(u *action.UploadAction) error {
	d.err = RunUpload(u)
	return d.err
}
