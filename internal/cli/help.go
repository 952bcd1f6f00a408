package cli

import (
	"fmt"
	"io"
)

const UpdateLong = `Compute duration, data rates, resolution and the keyframe index of an FLV
file and write them as a new onMetaData tag. Any onMetaData tags already in
the file are replaced.

Without an output file the input is updated in place.`

func HelpNothing(program string, stdout io.Writer) {
	fmt.Fprintf(stdout, "Usage: \"%s update [flags] in.flv [out.flv]\"\n", program)
	fmt.Fprintf(stdout, "\"%s --help\" for displaying more information\n", program)
}

// HelpPolicy describes the --policy values.
func HelpPolicy(stdout io.Writer) {
	fmt.Fprintln(stdout, "--policy=...  How to handle a final tag cut short by the end of the file")
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "strict              Abort with an end-of-stream error (default)")
	fmt.Fprintln(stdout, "fix                 Drop the incomplete tag")
	fmt.Fprintln(stdout, "ignore              Copy whatever bytes of the tag remain and stop")
}

// HelpExitCodes lists the process exit statuses.
func HelpExitCodes(stdout io.Writer) {
	fmt.Fprintln(stdout, "Exit codes:")
	fmt.Fprintf(stdout, "%-20d%s\n", exitOK, "Success")
	fmt.Fprintf(stdout, "%-20d%s\n", exitError, "Usage, configuration or I/O error")
	fmt.Fprintf(stdout, "%-20d%s\n", exitNotFLV, "Input is not an FLV file")
	fmt.Fprintf(stdout, "%-20d%s\n", exitEOS, "Unexpected end of input")
	fmt.Fprintf(stdout, "%-20d%s\n", exitMalformed, "Malformed AMF metadata")
	fmt.Fprintf(stdout, "%-20d%s\n", exitBadTag, "Unknown tag type")
	fmt.Fprintf(stdout, "%-20d%s\n", exitWrite, "Could not write output")
	fmt.Fprintf(stdout, "%-20d%s\n", exitSameFile, "Output path is the input file")
}
