package main

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionTemplate() string {
	return progName + " {{.Version}}\n  commit: " + commit + "\n  built: " + date + "\n"
}
