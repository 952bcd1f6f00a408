package cli

import (
	"fmt"
	"io"

	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

var appVersion = "dev"

func SetVersion(version string) {
	if version != "" {
		appVersion = version
	}
}

func Version(stdout io.Writer) {
	fmt.Fprintf(stdout, "%s, %s\n", flvmeta.AppName, flvmeta.FormatVersion(appVersion))
}
