package version

import (
	"runtime/debug"
	"sync"
)

// Header carries the relay version on outbound requests.
const Header = "X-Relay-Version"

const (
	versionDevel = "devel"
	shortCommit  = 12
)

// version and commit may be set via ldflags; otherwise they come from the
// module and VCS stamps in the build info.
var (
	version = versionDevel
	commit  string
)

var once sync.Once

func load() {
	once.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if v := info.Main.Version; version == versionDevel && v != "" && v != "("+versionDevel+")" {
			version = v
		}
		if commit != "" {
			return
		}
		var revision string
		var modified bool
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
		commit = formatCommit(revision, modified)
	})
}

func Get() string {
	load()
	return version
}

// Commit is the short VCS revision, empty when the binary was built outside a checkout.
func Commit() string {
	load()
	return commit
}

func formatCommit(revision string, modified bool) string {
	if revision == "" {
		return ""
	}
	if len(revision) > shortCommit {
		revision = revision[:shortCommit]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}
