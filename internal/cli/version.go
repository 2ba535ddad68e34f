package cli

import (
	"context"
	"fmt"
)

// Version number, set via ldflags by the release build. Local builds report
// "(local)".
var version = ""

// VersionCmd represents 'slipway version'.
type VersionCmd struct{}

// Run prints the version.
func (c *VersionCmd) Run(ctx context.Context) error {
	v := version
	if v == "" {
		v = "(local)"
	}
	fmt.Println(v)
	return nil
}
