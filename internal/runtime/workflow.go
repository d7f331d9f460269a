package runtime

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"crewforge/internal/config"
)

// TaskSpec is one declarative unit of work for the engine.
type TaskSpec struct {
	// ID names the task uniquely within its workflow.
	ID string `yaml:"id"`

	// Role selects which crew member the engine delegates to.
	Role config.Role `yaml:"role"`

	// Description is the natural-language task statement.
	Description string `yaml:"description"`

	// ExpectedOutput describes what a completed task produces.
	ExpectedOutput string `yaml:"expected_output"`

	// DependsOn lists task IDs that must complete first.
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// Workflow is a named, ordered set of tasks toward one goal.
type Workflow struct {
	Name  string     `yaml:"name"`
	Goal  string     `yaml:"goal"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadWorkflow reads and validates a workflow definition from YAML.
// The file may be a bare workflow document or an application config
// carrying the workflow under a top-level `workflow:` key.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var doc struct {
		Nested *Workflow `yaml:"workflow"`
		Inline Workflow  `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", path, err)
	}

	wf := doc.Nested
	if wf == nil {
		wf = &doc.Inline
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", path, err)
	}
	return wf, nil
}

func knownRole(role config.Role) bool {
	for _, r := range config.AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// Validate checks structural invariants: at least one task, unique IDs,
// known roles, dependencies that name declared tasks, and an acyclic
// dependency graph.
func (w *Workflow) Validate() error {
	if len(w.Tasks) == 0 {
		return fmt.Errorf("at least one task is required")
	}

	byID := make(map[string]bool, len(w.Tasks))
	for i, task := range w.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task %d: id is required", i)
		}
		if byID[task.ID] {
			return fmt.Errorf("duplicate task id: %s", task.ID)
		}
		byID[task.ID] = true

		if !knownRole(task.Role) {
			return fmt.Errorf("task %s: unknown role %q (valid: %v)", task.ID, task.Role, config.AllRoles)
		}
		if strings.TrimSpace(task.Description) == "" {
			return fmt.Errorf("task %s: description is required", task.ID)
		}
	}

	for _, task := range w.Tasks {
		for _, dep := range task.DependsOn {
			if dep == task.ID {
				return fmt.Errorf("task %s depends on itself", task.ID)
			}
			if !byID[dep] {
				return fmt.Errorf("task %s depends on undeclared task %q", task.ID, dep)
			}
		}
	}

	if _, err := w.Order(); err != nil {
		return err
	}
	return nil
}

// Order returns the tasks in dependency order. Ties break by
// declaration order, so the result is deterministic.
func (w *Workflow) Order() ([]TaskSpec, error) {
	indegree := make(map[string]int, len(w.Tasks))
	for _, task := range w.Tasks {
		indegree[task.ID] = len(task.DependsOn)
	}

	ordered := make([]TaskSpec, 0, len(w.Tasks))
	placed := make(map[string]bool, len(w.Tasks))

	for len(ordered) < len(w.Tasks) {
		progressed := false
		for _, task := range w.Tasks {
			if placed[task.ID] || indegree[task.ID] != 0 {
				continue
			}
			ordered = append(ordered, task)
			placed[task.ID] = true
			for _, other := range w.Tasks {
				for _, dep := range other.DependsOn {
					if dep == task.ID {
						indegree[other.ID]--
					}
				}
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, task := range w.Tasks {
				if !placed[task.ID] {
					stuck = append(stuck, task.ID)
				}
			}
			return nil, fmt.Errorf("dependency cycle among tasks: %s", strings.Join(stuck, ", "))
		}
	}
	return ordered, nil
}
