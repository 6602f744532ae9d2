package jobspec

import "strconv"

// Defaults for the tree-scatter sample job
const (
	scatterCompound  = "User::Graphs::addTrees"
	scatterGraphFile = "bifrostgraph.json"
)

// ScatterParams parameterizes the tree-scatter sample job: a bifrost
// graph that scatters TreeCount trees over an input USD plane and
// writes the result to OutputFilename.
type ScatterParams struct {
	GraphURN       string // uploaded bifrost graph definition
	InputURN       string // uploaded input geometry
	InputFilename  string // e.g. "plane.usd"
	OutputFilename string // e.g. "planeWithTrees.usd"
	TreeCount      int
}

// ScatterJob builds the full job description for one graph evaluation
// with the given parameters. The payload mirrors the bifrost executor
// contract: the graph definition is staged to a fixed local path, the
// input geometry is mapped in by filename, and a single frame-1
// execution maps the declared output back out by name.
func ScatterJob(p ScatterParams) Job {
	payload := map[string]any{
		"action": "Evaluate",
		"options": map[string]any{
			"compound": scatterCompound,
			"frames": map[string]any{
				"start": 1,
				"end":   1,
			},
		},
		"definitionFiles": []any{
			map[string]any{
				"source": map[string]any{"uri": p.GraphURN},
				"target": map[string]any{"path": scatterGraphFile},
			},
		},
		"ports": map[string]any{
			"inputPorts": []any{
				port("inputFilename", p.InputFilename, "string"),
				port("outputFilename", p.OutputFilename, "string"),
				// the executor expects numeric port values as strings
				port("amount", strconv.Itoa(p.TreeCount), "float"),
			},
			"jobPorts": []any{},
		},
		"executions": []any{
			map[string]any{
				"inputs": []any{
					map[string]any{
						"source": map[string]any{"uri": p.InputURN},
						"target": map[string]any{"path": p.InputFilename},
					},
				},
				"outputs": []any{
					map[string]any{
						"source": map[string]any{"path": p.OutputFilename},
						"target": map[string]any{"name": p.OutputFilename},
					},
				},
				"frameId": 1,
			},
		},
	}

	return Job{
		Name: "addTrees sample job",
		Tags: []string{"sample app"},
		Tasks: []Task{
			{
				Name:     "execute bifrost graph",
				Type:     "task",
				Executor: "bifrost",
				Inputs:   []any{},
				Limitations: Limitations{
					MaxExecutionTimeInSeconds: 600,
				},
				Payload: payload,
				Requirements: Requirements{
					CPU:    4,
					Memory: 30720,
				},
			},
		},
	}
}

func port(name, value, typ string) map[string]any {
	return map[string]any{
		"name":  name,
		"value": value,
		"type":  typ,
	}
}
