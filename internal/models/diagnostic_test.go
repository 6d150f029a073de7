package models

import "testing"

func TestEmptyPayloadDiagnostic(t *testing.T) {
	diag := EmptyPayloadDiagnostic()
	if diag.Type != DiagnosticError || diag.ErrorCount != 1 {
		t.Fatalf("unexpected diagnostic: %+v", diag)
	}
	if len(diag.Message) != 1 || diag.Message[0] != "empty payload" {
		t.Fatalf("unexpected message: %v", diag.Message)
	}
}

func TestFailureDiagnostic(t *testing.T) {
	failures := []ValidationFailure{
		{Error: "invalid tag"},
		{Error: "value is not finite"},
	}
	diag := FailureDiagnostic(DiagnosticPartial, failures)
	if diag.Type != DiagnosticPartial || diag.ErrorCount != 2 {
		t.Fatalf("unexpected diagnostic: %+v", diag)
	}
	if diag.Message[0] != "invalid tag" || diag.Message[1] != "value is not finite" {
		t.Fatalf("messages must preserve failure order: %v", diag.Message)
	}
}

func TestDatapointPairDropsTimestamp(t *testing.T) {
	dp := Datapoint{Timestamp: 61000, Tags: map[string]string{"name": "cpu"}, Value: 0.5}
	pair := dp.Pair()
	if pair.Value != 0.5 || pair.Tags["name"] != "cpu" {
		t.Fatalf("unexpected pair: %+v", pair)
	}
}
