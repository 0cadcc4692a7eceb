package buildinfo

import "fmt"

// Injectées à la compilation:
//
//	-X github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo.Version=v0.1.0
//	-X github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/series-notifier/internal/buildinfo.Date=2026-10-18
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

func (i Info) String() string {
	s := i.Version
	if i.Commit != "" {
		s += fmt.Sprintf(" (%s)", i.Commit)
	}
	if i.Date != "" {
		s += " built " + i.Date
	}
	return s
}
