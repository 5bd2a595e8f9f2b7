package action

import (
	"bytes"
	"testing"
)

func TestCompilePurity(t *testing.T) {
	a := Action{Command: &CommandAction{Argv: [][]string{{"echo", "$greeting"}}}}
	vars := map[string]string{"greeting": "hello"}

	first, err := Compile(a, vars)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := Compile(a, vars)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("Compile is not pure: %q != %q", first, second)
	}
}

func TestSubstitutionNonRecursion(t *testing.T) {
	a := Action{Command: &CommandAction{Argv: [][]string{{"echo", "$a"}}}}
	vars := map[string]string{"a": "$b", "b": "x"}

	out, err := Compile(a, vars)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if !bytes.Contains(out, []byte("$b")) {
		t.Errorf("expected literal $b in output, got %q", out)
	}
	if bytes.Contains(out, []byte("- x\n")) || bytes.Contains(out, []byte(`"x"`)) {
		t.Errorf("substitution recursed into inserted value: %q", out)
	}
}

func TestSubstitutionUndefinedVariableLeftUnchanged(t *testing.T) {
	a := Action{Command: &CommandAction{Argv: [][]string{{"echo", "$nope"}}}}

	out, err := Compile(a, map[string]string{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !bytes.Contains(out, []byte("$nope")) {
		t.Errorf("expected undefined variable left unchanged, got %q", out)
	}
}

func TestSubstitutionBracedForm(t *testing.T) {
	a := Action{Command: &CommandAction{Argv: [][]string{{"echo", "${greeting} ${name}"}}}}
	vars := map[string]string{"greeting": "hi", "name": "world"}

	out, err := Compile(a, vars)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !bytes.Contains(out, []byte("hi world")) {
		t.Errorf("expected braced substitution, got %q", out)
	}
}

func TestCompileRejectsInvalidAction(t *testing.T) {
	a := Action{} // no variant set
	_, err := Compile(a, nil)
	if err == nil {
		t.Fatal("expected error for action with no variant set")
	}
}

func TestMergeVarsManifestWins(t *testing.T) {
	taskVars := map[string]string{"k": "task-value", "only-task": "t"}
	manifestVars := map[string]string{"k": "manifest-value"}

	effective := MergeVars(taskVars, manifestVars)

	if effective["k"] != "manifest-value" {
		t.Errorf("expected manifest value to win, got %q", effective["k"])
	}
	if effective["only-task"] != "t" {
		t.Errorf("expected task-only var to survive, got %q", effective["only-task"])
	}
}
