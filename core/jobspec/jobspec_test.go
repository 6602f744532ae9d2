package jobspec

import (
	"encoding/json"
	"testing"
)

func TestScatterJob(t *testing.T) {
	job := ScatterJob(ScatterParams{
		GraphURN:       "urn:graph",
		InputURN:       "urn:input",
		InputFilename:  "plane.usd",
		OutputFilename: "planeWithTrees.usd",
		TreeCount:      250,
	})

	if len(job.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(job.Tasks))
	}
	task := job.Tasks[0]
	if task.Executor != "bifrost" {
		t.Errorf("expected bifrost executor, got %q", task.Executor)
	}
	if task.Requirements.CPU != 4 || task.Requirements.Memory != 30720 {
		t.Errorf("unexpected requirements: %+v", task.Requirements)
	}
	if task.Limitations.MaxExecutionTimeInSeconds != 600 {
		t.Errorf("unexpected time limit: %d", task.Limitations.MaxExecutionTimeInSeconds)
	}
}

func TestScatterJobPayload(t *testing.T) {
	job := ScatterJob(ScatterParams{
		GraphURN:       "urn:graph",
		InputURN:       "urn:input",
		InputFilename:  "plane.usd",
		OutputFilename: "planeWithTrees.usd",
		TreeCount:      42,
	})
	payload := job.Tasks[0].Payload

	if payload["action"] != "Evaluate" {
		t.Errorf("expected Evaluate action, got %v", payload["action"])
	}

	ports := payload["ports"].(map[string]any)["inputPorts"].([]any)
	if len(ports) != 3 {
		t.Fatalf("expected 3 input ports, got %d", len(ports))
	}
	amount := ports[2].(map[string]any)
	// the executor takes numeric port values as strings
	if amount["value"] != "42" {
		t.Errorf("expected amount value \"42\", got %v", amount["value"])
	}
	if amount["type"] != "float" {
		t.Errorf("expected float port type, got %v", amount["type"])
	}

	defs := payload["definitionFiles"].([]any)
	src := defs[0].(map[string]any)["source"].(map[string]any)
	if src["uri"] != "urn:graph" {
		t.Errorf("expected graph urn in definition file, got %v", src["uri"])
	}
}

func TestScatterJobSerializes(t *testing.T) {
	job := ScatterJob(ScatterParams{
		GraphURN:       "urn:graph",
		InputURN:       "urn:input",
		InputFilename:  "plane.usd",
		OutputFilename: "planeWithTrees.usd",
		TreeCount:      1,
	})

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Name != job.Name {
		t.Errorf("name lost in round trip: %q", decoded.Name)
	}
	if len(decoded.Tasks) != 1 {
		t.Fatalf("tasks lost in round trip")
	}

	// the executions mapping must survive as the mock and real service
	// both consume it to locate declared outputs
	execs := decoded.Tasks[0].Payload["executions"].([]any)
	outputs := execs[0].(map[string]any)["outputs"].([]any)
	target := outputs[0].(map[string]any)["target"].(map[string]any)
	if target["name"] != "planeWithTrees.usd" {
		t.Errorf("expected declared output planeWithTrees.usd, got %v", target["name"])
	}
}
