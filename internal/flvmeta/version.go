package flvmeta

import "strings"

const (
	AppName = "go-flvmeta"
	AppURL  = "https://github.com/autobrr/go-flvmeta"
)

var AppVersion = "dev"

func SetAppVersion(version string) {
	if version != "" {
		AppVersion = version
	}
}

func FormatVersion(version string) string {
	if version == "" || version == "dev" {
		return "dev"
	}
	return "v" + strings.TrimPrefix(version, "v")
}

// DefaultCreator is the metadatacreator value written when none is configured.
func DefaultCreator() string {
	return AppName + " " + FormatVersion(AppVersion)
}
