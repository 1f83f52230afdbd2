// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRegisterFieldNames(t *testing.T) {
	data, err := json.Marshal(Register{
		GameID: "sidequest",
		Name:   "Sidequest",
		AvailableActions: []Action{
			{ID: "enter_solution", Label: "Entrer la solution", Params: []string{"code"}},
			{ID: "reset", Label: "Reset"},
		},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"gameId":"sidequest"`, `"availableActions":[`, `"params":["code"]`} {
		if !strings.Contains(got, want) {
			t.Errorf("encoded register %s missing %s", got, want)
		}
	}
	if strings.Contains(got, `"role"`) {
		t.Errorf("empty role should be omitted: %s", got)
	}
	if strings.Count(got, `"params"`) != 1 {
		t.Errorf("empty params should be omitted: %s", got)
	}
}

func TestAbsentIndexStaysNil(t *testing.T) {
	var ref PresetRef
	if err := json.Unmarshal([]byte(`{}`), &ref); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ref.PresetIdx != nil {
		t.Errorf("PresetIdx = %d, want nil", *ref.PresetIdx)
	}

	var seek SeekPreset
	if err := json.Unmarshal([]byte(`{"presetIdx":0,"currentTime":12.5}`), &seek); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if seek.PresetIdx == nil || *seek.PresetIdx != 0 {
		t.Errorf("PresetIdx = %v, want 0", seek.PresetIdx)
	}
	if seek.CurrentTime == nil || *seek.CurrentTime != 12.5 {
		t.Errorf("CurrentTime = %v, want 12.5", seek.CurrentTime)
	}
}

func TestSeekRejectsNonNumericTime(t *testing.T) {
	var seek SeekPreset
	if err := json.Unmarshal([]byte(`{"presetIdx":1,"currentTime":"soon"}`), &seek); err == nil {
		t.Error("expected an error for a string currentTime")
	}
}

func TestProgressOmitsEndedUntilSet(t *testing.T) {
	data, err := json.Marshal(PresetProgress{PresetIdx: 2, CurrentTime: 1, Duration: 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "ended") {
		t.Errorf("running progress should not carry ended: %s", data)
	}
	data, err = json.Marshal(PresetProgress{PresetIdx: 2, CurrentTime: 3, Duration: 3, Ended: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"ended":true`) {
		t.Errorf("final progress should carry ended: %s", data)
	}
}

func TestRegisterAudioPlayerIsEmptyObject(t *testing.T) {
	data, err := json.Marshal(RegisterAudioPlayer{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("got %s, want {}", data)
	}
}
