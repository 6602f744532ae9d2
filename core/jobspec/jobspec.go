// Package jobspec builds job descriptions for the compute service.
// The envelope (name, tags, tasks) is typed; task payloads stay an
// untyped document because their shape belongs to the executor, and
// this layer deliberately does not validate what only the service can.
package jobspec

// Job is the document posted at submission time
type Job struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Tasks []Task   `json:"tasks"`
}

// Task is one unit of work inside a job
type Task struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Executor     string         `json:"executor"`
	Inputs       []any          `json:"inputs"`
	Limitations  Limitations    `json:"limitations"`
	Payload      map[string]any `json:"payload"`
	Requirements Requirements   `json:"requirements"`
}

// Limitations bounds a task's execution
type Limitations struct {
	MaxExecutionTimeInSeconds int `json:"maxExecutionTimeInSeconds"`
}

// Requirements declares the compute resources a task needs. Memory is
// in megabytes, following the service's convention.
type Requirements struct {
	CPU    int `json:"cpu"`
	Memory int `json:"memory"`
}
