// Package assets maps quest paths to the audio clips generated for them.
//
// Clips live under <games_dir>/<quest id>/audio and are named
// <category>_<slug>.mp3, where the slug is the path name lower-cased with
// spaces and hyphens turned into underscores.
package assets

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Clip categories.
const (
	StartingDescription = "starting_description"
	Description         = "description"
	Hint                = "hint"
	DeathText           = "death_text"
)

const cuesDir = "_cues"

// Resolver finds clips on disk. The zero value resolves relative to the
// working directory.
type Resolver struct {
	GamesDir string
}

func NewResolver(gamesDir string) *Resolver {
	return &Resolver{GamesDir: gamesDir}
}

// Slug turns a path name into the file-name fragment used for its clips.
//
//	Slug("The Siren's Song") == "the_siren's_song"
func Slug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// QuestDir is the folder holding a quest's document and audio.
func (r *Resolver) QuestDir(questID string) string {
	return filepath.Join(r.GamesDir, questID)
}

// QuestFile is the quest document path, <games_dir>/<id>/<id>.json.
func (r *Resolver) QuestFile(questID string) string {
	return filepath.Join(r.QuestDir(questID), questID+".json")
}

// Resolve returns the clip for category and path. For StartingDescription
// pathName is ignored and the quest id names the clip. A missing clip is
// reported with false; it is never an error.
func (r *Resolver) Resolve(category, pathName, questID string) (string, bool) {
	name := pathName
	if category == StartingDescription {
		name = questID
	}
	if name == "" {
		return "", false
	}
	dir := filepath.Join(r.QuestDir(questID), "audio")
	return lookup(dir, category+"_"+Slug(name)+".mp3")
}

// Cue returns the clip for a feedback cue such as "victory".
func (r *Resolver) Cue(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	return lookup(filepath.Join(r.GamesDir, cuesDir), Slug(name)+".mp3")
}

// lookup tries the name as given, then its NFC and NFD forms.
func lookup(dir, file string) (string, bool) {
	tried := make(map[string]bool, 3)
	for _, candidate := range []string{file, norm.NFC.String(file), norm.NFD.String(file)} {
		if tried[candidate] {
			continue
		}
		tried[candidate] = true
		p := filepath.Join(dir, candidate)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
