// Package web provides the embedded browser shell for the taskdeck server:
// the login form, the display region the server fills with committed views,
// and the script that forwards user events.
//
// The static/ directory is embedded at build time. During development,
// if static/ exists on the filesystem, it will be used instead so edits
// show up without a rebuild.
package web

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed static/*
var assets embed.FS

// GetAssets returns a filesystem containing the shell assets.
// When devPath names an existing directory, it returns the live filesystem;
// otherwise the embedded assets. An empty devPath disables the live lookup.
func GetAssets(devPath string) fs.FS {
	if devPath != "" {
		if stat, err := os.Stat(devPath); err == nil && stat.IsDir() {
			return os.DirFS(devPath)
		}
	}

	subFS, err := fs.Sub(assets, "static")
	if err != nil {
		// Only reachable if the embed directive above is broken
		panic("failed to access embedded web assets: " + err.Error())
	}
	return subFS
}

// GetAssetsWithBase checks for live assets under baseDir/web/static.
func GetAssetsWithBase(baseDir string) fs.FS {
	return GetAssets(filepath.Join(baseDir, "web", "static"))
}
