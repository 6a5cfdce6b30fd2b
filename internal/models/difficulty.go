// internal/models/difficulty.go
package models

// Difficulty is a fixed board preset.
type Difficulty struct {
	Name  string `json:"name"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Mines int    `json:"mines"`
}

// Difficulties lists the presets a lobby may pick, easiest first.
var Difficulties = []Difficulty{
	{Name: "beginner", Rows: 9, Cols: 9, Mines: 10},
	{Name: "intermediate", Rows: 16, Cols: 16, Mines: 40},
	{Name: "expert", Rows: 16, Cols: 30, Mines: 99},
}

// LookupDifficulty returns the preset with the given name.
func LookupDifficulty(name string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if d.Name == name {
			return d, true
		}
	}
	return Difficulty{}, false
}
