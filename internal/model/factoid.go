package model

import "encoding/json"

// Factoid is a row of the `factoids` table.  When read back through the
// repository, Game holds a game label rather than the numeric foreign key.
type Factoid struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Content string `db:"content" json:"content"`
	Game    string `db:"game" json:"game"`
}

// Game is the display record of a `games` row.
type Game struct {
	IDName      string `db:"idname" json:"idname"`
	DisplayName string `db:"displayname" json:"displayname"`
}

// GameName is the {id, name} projection returned by GetGame, where ID is the
// game's slug.
type GameName struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// GlobalGameRequest is reported as gamerequest when the requested slug
// matches no known game.
const GlobalGameRequest = "Global"

// Database is one game's factoid listing together with the full game list.
// The zero value is the failure result and encodes as {}.
type Database struct {
	GameRequest *Game
	Games       []Game
	Factoids    []Factoid
}

func (d Database) MarshalJSON() ([]byte, error) {
	if d.Games == nil && d.Factoids == nil && d.GameRequest == nil {
		return []byte("{}"), nil
	}
	var req any = GlobalGameRequest
	if d.GameRequest != nil {
		req = d.GameRequest
	}
	games := d.Games
	if games == nil {
		games = []Game{}
	}
	factoids := d.Factoids
	if factoids == nil {
		factoids = []Factoid{}
	}
	return json.Marshal(struct {
		GameRequest any       `json:"gamerequest"`
		Games       []Game    `json:"games"`
		Factoids    []Factoid `json:"factoids"`
	}{req, games, factoids})
}
