package domain

import "time"

// Solution is a candidate implementation plan for one issue.
type Solution struct {
	// ID has the form SOL-<issue id>-<n>, with n scoped to the issue.
	ID string `json:"id"`

	// IssueID names the owning issue.
	IssueID string `json:"issue_id"`

	Description string `json:"description,omitempty"`
	Approach    string `json:"approach,omitempty"`

	// Tasks is the ordered list of steps in the plan.
	Tasks []Task `json:"tasks"`

	// IsBound is true for at most one solution per issue.
	IsBound bool `json:"is_bound"`

	CreatedAt time.Time  `json:"created_at"`
	BoundAt   *time.Time `json:"bound_at,omitempty"`
}

// Task is one step of a solution.
type Task struct {
	ID                 string              `json:"id,omitempty" yaml:"id,omitempty"`
	Title              string              `json:"title,omitempty" yaml:"title,omitempty"`
	Description        string              `json:"description,omitempty" yaml:"description,omitempty"`
	ModificationPoints []ModificationPoint `json:"modification_points,omitempty" yaml:"modification_points,omitempty"`
}

// ModificationPoint names a file a task changes.
type ModificationPoint struct {
	File   string `json:"file" yaml:"file"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Change string `json:"change,omitempty" yaml:"change,omitempty"`
}

// FilesTouched flattens the modification points of every task into a list of
// distinct file paths, in first-seen order. Empty paths are skipped.
func (s Solution) FilesTouched() []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, task := range s.Tasks {
		for _, mp := range task.ModificationPoints {
			if mp.File == "" {
				continue
			}
			if _, ok := seen[mp.File]; ok {
				continue
			}
			seen[mp.File] = struct{}{}
			files = append(files, mp.File)
		}
	}
	return files
}
