package main

import "github.com/blang/semver"

var (
	progVersion = semver.Version{
		Major: 0,
		Minor: 2,
		Patch: 0,
		Pre: []semver.PRVersion{
			{VersionStr: "beta"},
		},
	}

	buildVersion string
)

func init() {
	if buildVersion != "" {
		progVersion.Build = []string{
			buildVersion,
		}
	}
}
