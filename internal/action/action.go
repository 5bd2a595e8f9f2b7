// Package action implements the Sira action model: the four action variants,
// their validation invariants, and the variable compiler that produces the
// exact byte payload signed and transmitted to sira-client.
package action

import (
	"fmt"
	"regexp"

	"sira/internal/sirerr"
)

// CommandAction runs an ordered, non-empty sequence of argv vectors without
// shell interpretation.
type CommandAction struct {
	Argv [][]string `yaml:"argv"`
}

// ScriptAction writes Contents (a complete script including shebang) to a
// temp file and runs it as User.
type ScriptAction struct {
	Name     string `yaml:"name"`
	User     string `yaml:"user,omitempty"`
	Contents string `yaml:"contents"`
}

// LineInFileAction edits a single line in Path. Exactly one of Pattern/After
// may be set; when neither is set the line is appended if not already
// present.
type LineInFileAction struct {
	Path    string `yaml:"path"`
	Line    string `yaml:"line"`
	Pattern string `yaml:"pattern,omitempty"`
	After   string `yaml:"after,omitempty"`
	Indent  bool   `yaml:"indent,omitempty"`
}

// UploadAction copies From (resolved on the control node) to To on the
// managed node, optionally setting ownership and permissions.
type UploadAction struct {
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	User        string `yaml:"user,omitempty"`
	Group       string `yaml:"group,omitempty"`
	Permissions string `yaml:"permissions,omitempty"`
	Overwrite   bool   `yaml:"overwrite,omitempty"`
}

// Action is a tagged variant: exactly one of the four fields is non-nil.
type Action struct {
	Command    *CommandAction    `yaml:"command,omitempty"`
	Script     *ScriptAction     `yaml:"script,omitempty"`
	LineInFile *LineInFileAction `yaml:"line_in_file,omitempty"`
	Upload     *UploadAction     `yaml:"upload,omitempty"`
}

// Variant names used in logging and error context.
const (
	VariantCommand    = "command"
	VariantScript     = "script"
	VariantLineInFile = "line_in_file"
	VariantUpload     = "upload"
)

// Variant returns the name of the set variant, or "" if none/multiple are set.
func (a *Action) Variant() string {
	set := 0
	name := ""
	if a.Command != nil {
		set++
		name = VariantCommand
	}
	if a.Script != nil {
		set++
		name = VariantScript
	}
	if a.LineInFile != nil {
		set++
		name = VariantLineInFile
	}
	if a.Upload != nil {
		set++
		name = VariantUpload
	}
	if set != 1 {
		return ""
	}
	return name
}

// Visitor is the shared dispatch surface for the closed set of four action
// variants - deliberately not an inheriting/registry design, per the action
// model's design notes.
type Visitor interface {
	VisitCommand(*CommandAction) error
	VisitScript(*ScriptAction) error
	VisitLineInFile(*LineInFileAction) error
	VisitUpload(*UploadAction) error
}

// Accept dispatches to the single visitor method matching the set variant.
func (a *Action) Accept(v Visitor) error {
	switch a.Variant() {
	case VariantCommand:
		return v.VisitCommand(a.Command)
	case VariantScript:
		return v.VisitScript(a.Script)
	case VariantLineInFile:
		return v.VisitLineInFile(a.LineInFile)
	case VariantUpload:
		return v.VisitUpload(a.Upload)
	default:
		return fmt.Errorf("action has no (or more than one) variant set")
	}
}

// Validate enforces the per-variant invariants from the action model.
func (a *Action) Validate() error {
	variant := a.Variant()
	if variant == "" {
		return &sirerr.ConfigError{Cause: fmt.Errorf("exactly one action variant must be set")}
	}

	switch variant {
	case VariantCommand:
		if len(a.Command.Argv) == 0 {
			return &sirerr.ConfigError{Cause: fmt.Errorf("command.argv must be non-empty")}
		}
		for i, argv := range a.Command.Argv {
			if len(argv) == 0 {
				return &sirerr.ConfigError{Cause: fmt.Errorf("command.argv[%d] must be non-empty", i)}
			}
		}
	case VariantScript:
		if a.Script.Contents == "" {
			return &sirerr.ConfigError{Cause: fmt.Errorf("script.contents must be non-empty")}
		}
		if a.Script.User == "" {
			a.Script.User = "root"
		}
	case VariantLineInFile:
		if a.LineInFile.Pattern != "" && a.LineInFile.After != "" {
			return &sirerr.ConfigError{Cause: fmt.Errorf("line_in_file: only one of pattern/after may be set")}
		}
		if a.LineInFile.Pattern != "" {
			if _, err := regexp.Compile(a.LineInFile.Pattern); err != nil {
				return &sirerr.ConfigError{Cause: fmt.Errorf("line_in_file.pattern: %v", err)}
			}
		}
		if a.LineInFile.After != "" {
			if _, err := regexp.Compile(a.LineInFile.After); err != nil {
				return &sirerr.ConfigError{Cause: fmt.Errorf("line_in_file.after: %v", err)}
			}
		}
	case VariantUpload:
		if a.Upload.From == "" {
			return &sirerr.ConfigError{Cause: fmt.Errorf("upload.from must be set")}
		}
		if a.Upload.To == "" {
			return &sirerr.ConfigError{Cause: fmt.Errorf("upload.to must be set")}
		}
	}
	return nil
}
