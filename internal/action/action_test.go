package action

import "testing"

func TestValidateExactlyOneVariant(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"none", Action{}, true},
		{"both command and script", Action{
			Command: &CommandAction{Argv: [][]string{{"true"}}},
			Script:  &ScriptAction{Contents: "#!/bin/sh\ntrue\n"},
		}, true},
		{"command only", Action{Command: &CommandAction{Argv: [][]string{{"true"}}}}, false},
		{"script only", Action{Script: &ScriptAction{Contents: "#!/bin/sh\ntrue\n"}}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.action.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestValidateCommandArgvNonEmpty(t *testing.T) {
	a := Action{Command: &CommandAction{Argv: [][]string{}}}
	if err := a.Validate(); err == nil {
		t.Error("expected error for empty argv")
	}

	a = Action{Command: &CommandAction{Argv: [][]string{{}}}}
	if err := a.Validate(); err == nil {
		t.Error("expected error for empty inner argv vector")
	}
}

func TestValidateScriptDefaultsUserToRoot(t *testing.T) {
	a := Action{Script: &ScriptAction{Contents: "#!/bin/sh\ntrue\n"}}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if a.Script.User != "root" {
		t.Errorf("expected default user root, got %q", a.Script.User)
	}
}

func TestValidateLineInFilePatternAndAfterMutuallyExclusive(t *testing.T) {
	a := Action{LineInFile: &LineInFileAction{
		Path:    "/etc/ssh/sshd_config",
		Line:    "PasswordAuthentication no",
		Pattern: "^PasswordAuthentication",
		After:   "^Port",
	}}
	if err := a.Validate(); err == nil {
		t.Error("expected error when both pattern and after are set")
	}
}

func TestValidateUploadRequiresFromAndTo(t *testing.T) {
	a := Action{Upload: &UploadAction{From: "", To: "/etc/foo"}}
	if err := a.Validate(); err == nil {
		t.Error("expected error for empty from")
	}

	a = Action{Upload: &UploadAction{From: "/local/foo", To: ""}}
	if err := a.Validate(); err == nil {
		t.Error("expected error for empty to")
	}
}

func TestAcceptDispatchesToCorrectVariant(t *testing.T) {
	var got string
	visitor := &recordingVisitor{record: &got}

	a := Action{Command: &CommandAction{Argv: [][]string{{"true"}}}}
	if err := a.Accept(visitor); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got != VariantCommand {
		t.Errorf("expected dispatch to command, got %q", got)
	}
}

type recordingVisitor struct{ record *string }

func (v *recordingVisitor) VisitCommand(*CommandAction) error       { *v.record = VariantCommand; return nil }
func (v *recordingVisitor) VisitScript(*ScriptAction) error         { *v.record = VariantScript; return nil }
func (v *recordingVisitor) VisitLineInFile(*LineInFileAction) error { *v.record = VariantLineInFile; return nil }
func (v *recordingVisitor) VisitUpload(*UploadAction) error         { *v.record = VariantUpload; return nil }
