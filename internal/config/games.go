package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Game describes one supported game: which map files belong to it and how
// large its world is.
type Game struct {
	Name           string   `toml:"name"`
	FileTypes      []string `toml:"file-types"`
	WorldSize      float64  `toml:"world-size"`
	DefaultTexture string   `toml:"default-texture"`
}

type Games struct {
	Games []Game `toml:"game"`
}

const defaultWorldSize = 32768

func DefaultGames() Games {
	return Games{Games: []Game{
		{Name: "Quake", FileTypes: []string{"map", "qmap"}, WorldSize: defaultWorldSize, DefaultTexture: "__TB_empty"},
		{Name: "Quake2", FileTypes: []string{"q2map"}, WorldSize: 8192, DefaultTexture: "e1u1/clip"},
	}}
}

// HalfSize returns half of the world extent, falling back to the default
// world size when unset.
func (g Game) HalfSize() float64 {
	if g.WorldSize <= 0 {
		return defaultWorldSize / 2
	}
	return g.WorldSize / 2
}

func (g Games) Match(path string) *Game {
	base := filepath.Base(path)
	baseLower := strings.ToLower(base)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	for i := range g.Games {
		game := &g.Games[i]
		for _, ft := range game.FileTypes {
			ftLower := strings.ToLower(ft)
			if ftLower == ext || ftLower == baseLower {
				return game
			}
			if strings.HasPrefix(ftLower, ".") && strings.TrimPrefix(ftLower, ".") == ext {
				return game
			}
		}
	}
	return nil
}

func (g Games) Find(name string) *Game {
	for i := range g.Games {
		if strings.EqualFold(g.Games[i].Name, name) {
			return &g.Games[i]
		}
	}
	return nil
}

// LoadGames reads games.toml. Games defined there replace built-in games of
// the same name; the rest of the built-ins are kept.
func LoadGames() (Games, error) {
	games := DefaultGames()
	path, err := GamesPath()
	if err != nil {
		return games, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return games, nil
		}
		return games, err
	}

	var user Games
	if _, err := toml.Decode(string(data), &user); err != nil {
		return games, err
	}
	for _, g := range user.Games {
		if existing := games.Find(g.Name); existing != nil {
			*existing = g
			continue
		}
		games.Games = append(games.Games, g)
	}
	return games, nil
}

func GamesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "games.toml"), nil
}
