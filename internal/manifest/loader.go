package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"sira/internal/signing"
	"sira/internal/sirerr"
)

// Loader parses manifest/task files, verifying signatures against the
// manifest-file allowed-signers when configured.
type Loader struct {
	Verifier signing.Verifier
}

// LoadManifests loads each of the given top-level manifest file paths (in
// order), resolving their Include lists (one level: included files hold
// only tasks, which have no includes of their own), and returns the
// manifests in file order with the documents within each file preserved in
// document order.
func (l *Loader) LoadManifests(ctx context.Context, paths []string) ([]*Manifest, error) {
	var manifests []*Manifest
	for _, path := range paths {
		docs, err := l.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}

		fileManifests, fileTasks := splitDocuments(docs)
		if len(fileManifests) == 0 {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("expected manifest document(s), found only task documents")}
		}
		if len(fileTasks) > 0 {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("manifest file mixes manifest and task documents")}
		}

		for _, m := range fileManifests {
			m.SourceFile = path
			m.Dir = filepath.Dir(path)

			if len(m.Hosts) == 0 {
				return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("manifest %q has an empty hosts list", m.Name)}
			}
			if err := validateVarNames(m.Vars); err != nil {
				return nil, &sirerr.ConfigError{File: path, Cause: err}
			}

			for _, includePath := range m.Include {
				resolved := includePath
				if !filepath.IsAbs(resolved) {
					resolved = filepath.Join(m.Dir, includePath)
				}

				tasks, err := l.loadTaskFile(ctx, resolved)
				if err != nil {
					return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("include %q: %v", includePath, err)}
				}
				m.Tasks = append(m.Tasks, tasks...)
			}

			manifests = append(manifests, m)
		}
	}
	return manifests, nil
}

// loadTaskFile loads a file that must contain only Task documents.
func (l *Loader) loadTaskFile(ctx context.Context, path string) ([]*Task, error) {
	docs, err := l.loadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	fileManifests, fileTasks := splitDocuments(docs)
	if len(fileManifests) > 0 {
		return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("included file contains manifest document(s), expected only tasks")}
	}
	if len(fileTasks) == 0 {
		return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("included file contains no task documents")}
	}

	for _, t := range fileTasks {
		t.SourceFile = path
		if err := validateVarNames(t.Vars); err != nil {
			return nil, &sirerr.ConfigError{File: path, Cause: err}
		}
		for i := range t.Actions {
			if err := t.Actions[i].Validate(); err != nil {
				return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("task %q action #%d: %v", t.Name, i+1, err)}
			}
		}
	}
	return fileTasks, nil
}

// loadedDoc is either a *Manifest or a *Task, tagged by which field is set.
type loadedDoc struct {
	manifest *Manifest
	task     *Task
}

// loadFile reads path, verifies its signature if an allowed-signers file is
// configured, and decodes each YAML document in it.
func (l *Loader) loadFile(ctx context.Context, path string) ([]loadedDoc, error) {
	if err := l.Verifier.VerifyFile(ctx, path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sirerr.ConfigError{File: path, Cause: err}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var docs []loadedDoc
	docIndex := 0
	for {
		var probe map[string]interface{}
		err := decoder.Decode(&probe)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d: %v", docIndex, err)}
		}
		if probe == nil {
			docIndex++
			continue
		}

		_, hasHosts := probe["hosts"]
		_, hasActions := probe["actions"]
		if hasHosts && hasActions {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d has both hosts and actions keys", docIndex)}
		}
		if !hasHosts && !hasActions {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d is neither a manifest (hosts) nor a task (actions)", docIndex)}
		}

		reencoded, err := yaml.Marshal(probe)
		if err != nil {
			return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d: %v", docIndex, err)}
		}

		if hasHosts {
			var m Manifest
			if err := yaml.Unmarshal(reencoded, &m); err != nil {
				return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d: %v", docIndex, err)}
			}
			docs = append(docs, loadedDoc{manifest: &m})
		} else {
			var t Task
			if err := yaml.Unmarshal(reencoded, &t); err != nil {
				return nil, &sirerr.ConfigError{File: path, Cause: fmt.Errorf("document %d: %v", docIndex, err)}
			}
			docs = append(docs, loadedDoc{task: &t})
		}
		docIndex++
	}
	return docs, nil
}

func splitDocuments(docs []loadedDoc) (manifests []*Manifest, tasks []*Task) {
	for _, d := range docs {
		if d.manifest != nil {
			manifests = append(manifests, d.manifest)
		} else {
			tasks = append(tasks, d.task)
		}
	}
	return
}

func validateVarNames(vars map[string]string) error {
	for name := range vars {
		if !varNamePattern.MatchString(name) {
			return fmt.Errorf("variable name %q does not match %s", name, varNamePattern.String())
		}
	}
	return nil
}
