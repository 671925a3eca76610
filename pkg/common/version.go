package common

import (
	"bytes"
	"fmt"
)

var (
	// PV is the current version object of the program
	PV ProgramVersion
	// Version is the current version of the program, set by ldflags
	Version string
	// CommitHash is the current commit hash of the program, set by ldflags
	CommitHash string
	// BuildTime is the current build time of the program, set by ldflags
	BuildTime string
)

func init() {
	PV.Version = Version
	PV.CommitHash = CommitHash
	PV.BuildTime = BuildTime
	if PV.Version == "" {
		PV.Version = "dev"
	}
}

// ProgramVersion is the version object of the program
type ProgramVersion struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// Short returns the short version of the program
func (v ProgramVersion) Short() string {
	if v.CommitHash == "" {
		return fmt.Sprintf("v%s", v.Version)
	}
	return fmt.Sprintf("v%s-%s", v.Version, v.CommitHash)
}

// UserAgent returns the default User-Agent used when downloading lists
func (v ProgramVersion) UserAgent() string {
	return fmt.Sprintf("blocklist-merger/%s", v.Short())
}

// String returns the verbose version of the program
func (v ProgramVersion) String() string {
	var buffer bytes.Buffer
	buffer.WriteString("Blocklist Merger\n")
	buffer.WriteString(fmt.Sprintf("Version: v%s\n", v.Version))
	buffer.WriteString(fmt.Sprintf("Commit: %s\n", v.CommitHash))
	buffer.WriteString(fmt.Sprintf("Build Date: %s", v.BuildTime))
	return buffer.String()
}
