// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/polylink/pkg/cli/cmds/launcher"
	_ "github.com/robotalks/polylink/pkg/cli/cmds/remote"
)
