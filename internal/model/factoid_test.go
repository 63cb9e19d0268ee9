package model

import (
	"encoding/json"
	"testing"
)

func TestDatabaseMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Database
		want string
	}{
		{
			name: "failure value",
			in:   Database{},
			want: `{}`,
		},
		{
			name: "unknown slug",
			in:   Database{Games: []Game{{IDName: "retro", DisplayName: "Retro"}}},
			want: `{"gamerequest":"Global","games":[{"idname":"retro","displayname":"Retro"}],"factoids":[]}`,
		},
		{
			name: "known slug",
			in: Database{
				GameRequest: &Game{IDName: "retro", DisplayName: "Retro"},
				Games:       []Game{{IDName: "retro", DisplayName: "Retro"}},
				Factoids:    []Factoid{{ID: 3, Name: "hi", Content: "hello", Game: "retro"}},
			},
			want: `{"gamerequest":{"idname":"retro","displayname":"Retro"},"games":[{"idname":"retro","displayname":"Retro"}],"factoids":[{"id":3,"name":"hi","content":"hello","game":"retro"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}
