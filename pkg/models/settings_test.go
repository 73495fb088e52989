package models

import (
	"reflect"
	"testing"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestServerSettingsResolve(t *testing.T) {
	defaults := DefaultServerSettings()

	channels := []string{"c1"}
	withStored := defaults
	withStored.DefaultVolume = 0
	withStored.AutoLeave = false
	withStored.DeleteCommands = true
	withStored.AllowedChannels = channels

	tests := []struct {
		name string
		doc  *ServerSettingsDoc
		want ServerSettings
	}{
		{"nil doc", nil, defaults},
		{"empty doc", &ServerSettingsDoc{}, defaults},
		{"zero values are kept", &ServerSettingsDoc{
			DefaultVolume:   intp(0),
			AutoLeave:       boolp(false),
			DeleteCommands:  boolp(true),
			AllowedChannels: &channels,
		}, withStored},
	}
	for _, tt := range tests {
		if got := tt.doc.Resolve(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Resolve() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestServerSettingsEmpty(t *testing.T) {
	var nilDoc *ServerSettingsDoc
	if !nilDoc.Empty() {
		t.Errorf("nil doc Empty() = false, want true")
	}
	if !(&ServerSettingsDoc{ID: "g1"}).Empty() {
		t.Errorf("doc with only an ID Empty() = false, want true")
	}
	if (&ServerSettingsDoc{WelcomeMessages: boolp(false)}).Empty() {
		t.Errorf("doc with a field Empty() = true, want false")
	}
}
